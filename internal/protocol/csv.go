package protocol

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	mfccalc "github.com/zahiraIi/MFC-Calculator-Tool"
)

// isoStampLen truncates the file-name timestamp after the minutes, matching
// the tool's historical download names.
const isoStampLen = 16

// WriteCSV renders the protocol document: a commented preamble echoing the
// session inputs, the column header and the timeline rows. MFC A and MFC B
// are written to two decimals in every row; MFC C is written to nine decimals
// in exposure rows and as a bare zero elsewhere; times are integer seconds.
// An invalid plan produces an empty document.
func WriteCSV(w io.Writer, in mfccalc.InputParameters, res mfccalc.FlowResult, t mfccalc.TimingParameters, now time.Time) error {
	if !res.IsValid {
		return nil
	}

	var buf bytes.Buffer
	buf.WriteString("# MFC Gas Dilution Protocol\n")
	buf.WriteString("# Channels: MFC A = dry air, MFC B = humid air, MFC C = CH2O trace gas (flows in SLPM)\n")
	fmt.Fprintf(&buf, "# Generated: %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&buf, "# Target humidity: %g %%RH\n", in.TargetHumidity)
	fmt.Fprintf(&buf, "# Total flow: %g SLPM\n", in.TotalFlow)
	fmt.Fprintf(&buf, "# CH2O source concentration: %g ppm\n", in.CH2OSourceConc)
	buf.WriteString("Time,MFC A,MFC B,MFC C\n")

	for _, row := range BuildTimeline(res, t) {
		if row.Exposure {
			fmt.Fprintf(&buf, "%d,%.2f,%.2f,%.9f\n", row.TimeSec, row.A, row.B, row.C)
		} else {
			fmt.Fprintf(&buf, "%d,%.2f,%.2f,0\n", row.TimeSec, row.A, row.B)
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// Filename builds the download name MFC_<humidity>RH_<stamp>.csv, where the
// stamp is the ISO-8601 UTC instant with ':' and '.' replaced by '-' and cut
// after the minutes.
func Filename(targetHumidity float64, now time.Time) string {
	stamp := now.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	if len(stamp) > isoStampLen {
		stamp = stamp[:isoStampLen]
	}
	return fmt.Sprintf("MFC_%gRH_%s.csv", targetHumidity, stamp)
}

// TotalTimeHours estimates the protocol run length in hours, one decimal
// place, for n concentration steps. It is a planning figure independent of
// the row cursor: n baseline phases, n exposure phases and one trailing
// exposure-length buffer. Zero steps report "0".
func TotalTimeHours(n, baselineMin, exposureMin int) string {
	if n == 0 {
		return "0"
	}
	totalMinutes := n*baselineMin + n*exposureMin + exposureMin
	return fmt.Sprintf("%.1f", float64(totalMinutes)/60)
}
