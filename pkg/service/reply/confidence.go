package reply

import "unicode/utf8"

const maxConfidence = 0.95

// Confidence estimates reply trustworthiness from reply length and source
// count. A coarse proxy, not a calibrated probability: longer replies backed
// by more sources score higher, capped below certainty.
func Confidence(reply string, sourceCount int) float64 {
	score := 0.7 +
		(float64(utf8.RuneCountInString(reply))/1000)*0.1 +
		(float64(sourceCount)/10)*0.1

	if score > maxConfidence {
		return maxConfidence
	}
	return score
}
