package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunWritesSchedule(t *testing.T) {
	dir := t.TempDir()
	exams := writeFixture(t, dir, "exams.csv", "id,title,duration,students,departments\n"+
		"E1,Algorithmique,2,50,GL-L1\n"+
		"E2,Reseaux,2,50,GL-L1\n"+
		"E3,Bases de donnees,2,60,IM-L2\n")
	rooms := writeFixture(t, dir, "rooms.csv", "id,name,capacity,availability,morning_only,afternoon_only,specific_days\n"+
		"R1,IRAN1,100,,false,false,\n"+
		"R2,IRAN2,80,,false,false,\n")
	out := filepath.Join(dir, "schedule.csv")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--exams", exams, "--rooms", rooms, "--out", out, "--quiet",
		"--days", "Jour 1", "--slots", "8h-10h@MORNING,10h-12h@MORNING"}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "exam_id,title,room,timeslot,day,slot,span", lines[0])
}

func TestRunReportsInfeasibility(t *testing.T) {
	dir := t.TempDir()
	exams := writeFixture(t, dir, "exams.csv", "id,title,duration,students,departments\n"+
		"E1,Algorithmique,2,500,GL-L1\n")
	rooms := writeFixture(t, dir, "rooms.csv", "id,name,capacity,availability,morning_only,afternoon_only,specific_days\n"+
		"R1,IRAN1,100,,false,false,\n")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--exams", exams, "--rooms", rooms, "--quiet"}, &stdout, &stderr)

	assert.Equal(t, exitInfeasible, code)
	assert.Contains(t, stderr.String(), `"code": "INFEASIBLE_EXAM"`)
	assert.Empty(t, stdout.String())
}

func TestRunRejectsBadDelimiter(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--delimiter", ";;"}, &stdout, &stderr)
	assert.Equal(t, exitUsage, code)
}
