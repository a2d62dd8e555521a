package models

import "strings"

// gradePointTable maps letter grades to grade points. The table is fixed and
// consulted case-insensitively; letters outside it carry no points.
var gradePointTable = map[string]float64{
	"A":  4.0,
	"A-": 3.7,
	"B+": 3.3,
	"B":  3.0,
	"B-": 2.7,
	"C+": 2.3,
	"C":  2.0,
	"C-": 1.7,
	"D":  1.0,
	"F":  0.0,
}

// GradePointsFor resolves a letter grade to grade points. Unrecognised letters
// (and the empty string) yield nil, never an error.
func GradePointsFor(letter string) *float64 {
	if letter == "" {
		return nil
	}
	points, ok := gradePointTable[strings.ToUpper(letter)]
	if !ok {
		return nil
	}
	return &points
}
