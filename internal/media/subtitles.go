package media

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/blacktop/reelpost/internal/fsutil"
)

const assHeader = `[Script Info]
ScriptType: v4.00+
Collisions: Normal
PlayResX: 1080
PlayResY: 1920

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Primary,Lora,72,&H00FFFFFF,&H000000FF,&H00000000,&H8F000000,0,0,0,0,100,100,0,0,1,4,12,2,80,80,140,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`

// Subtitles renders lines as ASS dialogue events sharing the duration evenly.
func Subtitles(lines []string, durationSec float64) string {
	var b strings.Builder
	b.WriteString(assHeader)
	if len(lines) == 0 {
		return b.String()
	}
	per := durationSec / float64(len(lines))
	for i, line := range lines {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Primary,,0,0,0,,%s\n",
			assTimestamp(per*float64(i)), assTimestamp(per*float64(i+1)), escapeASS(line))
	}
	return b.String()
}

// WriteSubtitles writes Subtitles to a temp .ass file and returns its path.
func WriteSubtitles(lines []string, durationSec float64) (string, error) {
	path := fsutil.TempPath("subs", "ass")
	if err := os.WriteFile(path, []byte(Subtitles(lines, durationSec)), 0o644); err != nil {
		return "", fmt.Errorf("write subtitles: %w", err)
	}
	return path, nil
}

// assTimestamp formats seconds as H:MM:SS.cc with centisecond precision.
func assTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int64(math.Round(sec * 100))
	cs := total % 100
	s := (total / 100) % 60
	m := (total / 6000) % 60
	h := total / 360000
	return fmt.Sprintf("%02d:%02d:%02d.%02d", h, m, s, cs)
}

var assEscaper = strings.NewReplacer(`\`, `\\`, "{", `\{`, "}", `\}`, "\n", `\N`)

func escapeASS(s string) string {
	return assEscaper.Replace(s)
}
