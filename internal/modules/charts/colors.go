package charts

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var basePalette = []string{
	"rgba(255, 99, 132, 0.8)",
	"rgba(54, 162, 235, 0.8)",
	"rgba(255, 206, 86, 0.8)",
	"rgba(75, 192, 192, 0.8)",
	"rgba(153, 102, 255, 0.8)",
	"rgba(255, 159, 64, 0.8)",
	"rgba(199, 199, 199, 0.8)",
	"rgba(83, 102, 255, 0.8)",
	"rgba(40, 159, 64, 0.8)",
}

// goldenAngle spreads generated hues so neighbours stay distinguishable.
const goldenAngle = 137.508

// GenerateColors returns n fill colors: the base palette first, then hues
// stepped by the golden angle.
func GenerateColors(n int) []string {
	if n <= 0 {
		return []string{}
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if i < len(basePalette) {
			out = append(out, basePalette[i])
			continue
		}
		hue := math.Mod(float64(i)*goldenAngle, 360)
		out = append(out, fmt.Sprintf("hsla(%s, 70%%, 60%%, 0.8)", formatHue(hue)))
	}
	return out
}

func formatHue(h float64) string {
	return decimal.NewFromFloat(h).Round(3).String()
}
