package cleaner

// Signal weights for the extraction confidence scorer. The base term comes
// from word count alone; the rest are additive presence bonuses, matching
// the pruning scorer's weighted-sum approach elsewhere in this package.
const (
	qWordCountCeiling = 500 // word count at which the base term saturates
	qWordCountBase    = 0.6 // base score contributed at/above the ceiling
	qWordCountFloor   = 10  // below this many words, the base term is 0

	qPublishedAtBonus  = 0.15
	qCodeBlockBonus    = 0.15
	qHeadingCountBonus = 0.10
	qHeadingMinCount   = 3
)

// ScoreExtraction returns a [0,1] confidence score for how well the pipeline
// likely isolated a page's main content. The score is monotone in wordCount
// and in the number of positive signals present (a published date, at least
// one code block, at least three headings).
func ScoreExtraction(wordCount int, hasPublishedAt bool, codeBlockCount, headingCount int) float64 {
	score := wordCountBase(wordCount)

	if hasPublishedAt {
		score += qPublishedAtBonus
	}
	if codeBlockCount >= 1 {
		score += qCodeBlockBonus
	}
	if headingCount >= qHeadingMinCount {
		score += qHeadingCountBonus
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// wordCountBase linearly ramps from 0 at qWordCountFloor words to
// qWordCountBase at qWordCountCeiling words: 0 for <10 words, rising to
// 0.6 at >=500 words.
func wordCountBase(wordCount int) float64 {
	if wordCount < qWordCountFloor {
		return 0
	}
	if wordCount >= qWordCountCeiling {
		return qWordCountBase
	}
	span := float64(qWordCountCeiling - qWordCountFloor)
	progress := float64(wordCount-qWordCountFloor) / span
	return progress * qWordCountBase
}
