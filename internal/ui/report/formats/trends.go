package formats

import (
	"encoding/json"
	"fmt"
	"strings"

	"elision/internal/data/history"
)

func RenderTrendTSV(report history.TrendReport) []byte {
	var buf strings.Builder
	buf.WriteString("Timestamp\tRun\tDeclarations\tElided\tErrors\tElisionRate\tDeltaDeclarations\tDeltaElided\tDeltaErrors\n")
	for _, point := range report.Points {
		fmt.Fprintf(&buf, "%s\t%s\t%d\t%d\t%d\t%.2f\t%d\t%d\t%d\n",
			point.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			point.RunID,
			point.Declarations,
			point.Elided,
			point.Errors,
			point.ElisionRate,
			point.DeltaDeclared,
			point.DeltaElided,
			point.DeltaErrors,
		)
	}
	return []byte(buf.String())
}

func RenderTrendJSON(report history.TrendReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}
