package handler

import "github.com/mattdomit/dotted-sub000/internal/repository"

func scoresOf(v float64) repository.DishScores {
	return repository.DishScores{OptimizationScore: v}
}
