package domain

type RatingState struct {
	Rating       float64
	TotalRatings int
	RatingSum    int
}

// ApplyRating folds one more rating into s.
func ApplyRating(s RatingState, rating int) (RatingState, error) {
	if rating < MinRating || rating > MaxRating {
		return s, NewValidationError(map[string]string{"rating": "must be between 1 and 5"})
	}
	s.RatingSum += rating
	s.TotalRatings++
	s.Rating = AverageRating(s.RatingSum, s.TotalRatings)
	return s, nil
}

// AverageRating returns sum/total rounded to one decimal, half away from
// zero. Integer arithmetic keeps x.x5 boundaries exact.
func AverageRating(sum, total int) float64 {
	if total <= 0 {
		return DefaultRating
	}
	tenths := (20*sum + total) / (2 * total)
	return float64(tenths) / 10
}
