package app

import "anime-quiz-service/internal/domain"

// Score counts the correctly answered rounds among the first total answers.
// Incomplete games score only what was recorded.
func Score(total int, answers []domain.Answer) int {
	if total < len(answers) {
		answers = answers[:max(total, 0)]
	}
	correct := 0
	for _, a := range answers {
		if a.WasCorrect() {
			correct++
		}
	}
	return correct
}
