// Package shortcode generates the random tokens used as short link codes.
package shortcode

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Length is the number of characters in a generated code.
const Length = 6

// Alphabet is the URL-safe set codes are drawn from.
const Alphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Generator produces random codes of a fixed length. Uniqueness is not
// guaranteed here; the storage rejects duplicates.
type Generator struct {
	length int
}

// New returns a Generator for codes of Length characters.
func New() *Generator {
	return &Generator{length: Length}
}

// Generate returns a fresh random code.
func (g *Generator) Generate() (string, error) {
	return gonanoid.Generate(Alphabet, g.length)
}
