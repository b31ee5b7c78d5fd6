package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	return Document{
		Title: "Session de rattrapage",
		Days:  []string{"Jour 1", "Jour 2"},
		Slots: []string{"8h-10h", "10h-12h"},
		Rows: []TimetableRow{
			{ExamID: "E1", Title: "Algèbre", RoomName: "IRAN1", Timeslot: 0, Day: "Jour 1", Slot: "8h-10h", Span: 1, Students: 40},
			{ExamID: "E2", Title: "Réseaux", RoomName: "IRAN2", Timeslot: 0, Day: "Jour 1", Slot: "8h-10h", Span: 1, Students: 35},
			{ExamID: "E3", Title: "Compilation", RoomName: "IRAN1", Timeslot: 3, Day: "Jour 2", Slot: "10h-12h", Span: 1, Students: 20},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDocument())
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Equal(t, "exam_id,title,room,timeslot,day,slot,span,students", string(lines[0]))
	assert.Equal(t, "E1,Algèbre,IRAN1,0,Jour 1,8h-10h,1,40", string(lines[1]))
	assert.Equal(t, "E3,Compilation,IRAN1,3,Jour 2,10h-12h,1,20", string(lines[3]))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDocument())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewPDFExporter().Render(Document{})
	assert.Error(t, err)
}
