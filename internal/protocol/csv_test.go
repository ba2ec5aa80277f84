package protocol

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
)

func referenceInputs() mfccalc.InputParameters {
	return mfccalc.InputParameters{
		TotalFlow:      500,
		TargetHumidity: 35,
		CH2OSourceConc: 25,
		Concentrations: []float64{5, 10, 20},
	}
}

func TestWriteCSV_ReferenceDocument(t *testing.T) {
	now := time.Date(2026, 8, 23, 14, 30, 45, 123_000_000, time.UTC)

	var buf bytes.Buffer
	err := WriteCSV(&buf, referenceInputs(), validResult(), standardTimings(), now)
	require.NoError(t, err)

	want := []string{
		"# MFC Gas Dilution Protocol",
		"# Channels: MFC A = dry air, MFC B = humid air, MFC C = CH2O trace gas (flows in SLPM)",
		"# Generated: 2026-08-23T14:30:45Z",
		"# Target humidity: 35 %RH",
		"# Total flow: 500 SLPM",
		"# CH2O source concentration: 25 ppm",
		"Time,MFC A,MFC B,MFC C",
		"0,319.71,180.29,0",
		"1800,319.71,180.29,0",
		"1800,319.61,180.29,0.100000000",
		"3600,319.71,180.29,0",
		"3600,319.51,180.29,0.200000000",
		"5400,319.71,180.29,0",
		"5400,319.31,180.29,0.400000000",
		"7200,319.71,180.29,0",
		"7200,0.00,0.00,0",
		"",
	}
	assert.Equal(t, want, strings.Split(buf.String(), "\n"))
}

func TestWriteCSV_NoConcentrations(t *testing.T) {
	res := validResult()
	res.MFCC = nil
	in := referenceInputs()
	in.Concentrations = nil

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, in, res, standardTimings(), time.Unix(0, 0)))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 10, "6 comment lines, header, baseline, final baseline, shutdown")
	assert.Equal(t, "0,319.71,180.29,0", lines[7])
	assert.Equal(t, "1800,319.71,180.29,0", lines[8])
	assert.Equal(t, "1800,0.00,0.00,0", lines[9])
}

func TestWriteCSV_InvalidPlanIsEmpty(t *testing.T) {
	res := validResult()
	res.IsValid = false

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, referenceInputs(), res, standardTimings(), time.Now()))
	assert.Zero(t, buf.Len())
}

func TestFilename(t *testing.T) {
	now := time.Date(2026, 8, 23, 14, 30, 45, 123_000_000, time.UTC)
	assert.Equal(t, "MFC_35RH_2026-08-23T14-30.csv", Filename(35, now))
	assert.Equal(t, "MFC_42.5RH_2026-08-23T14-30.csv", Filename(42.5, now))
}

func TestFilename_NonUTCNormalized(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	now := time.Date(2026, 8, 23, 17, 30, 45, 0, loc) // 14:30:45 UTC
	assert.Equal(t, "MFC_35RH_2026-08-23T14-30.csv", Filename(35, now))
}

func TestTotalTimeHours(t *testing.T) {
	assert.Equal(t, "3.5", TotalTimeHours(3, 30, 30))
	assert.Equal(t, "0", TotalTimeHours(0, 30, 30))
	assert.Equal(t, "1.4", TotalTimeHours(2, 20, 15)) // 85 min
	assert.Equal(t, "1.0", TotalTimeHours(1, 30, 15)) // 60 min
}
