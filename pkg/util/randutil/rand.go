// Copyright 2024 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package randutil

import (
	crypto_rand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// NewPseudoSeed generates a seed from a secure random source.
func NewPseudoSeed() int64 {
	var seed int64
	err := binary.Read(crypto_rand.Reader, binary.LittleEndian, &seed)
	if err != nil {
		panic(fmt.Sprintf("could not read from crypto/rand: %s", err))
	}
	return seed
}

// NewPseudoRand returns an instance of math/rand.Rand seeded from a secure
// source, along with the seed so it can be logged and the run reproduced.
func NewPseudoRand() (*rand.Rand, int64) {
	seed := NewPseudoSeed()
	return rand.New(rand.NewSource(seed)), seed
}

// NewTestRand returns an instance of math/rand.Rand for use in tests, along
// with the seed to report on failure.
func NewTestRand() (*rand.Rand, int64) {
	return NewPseudoRand()
}

// RandIntInRange returns a value in [min, max).
func RandIntInRange(r *rand.Rand, min, max int) int {
	return min + r.Intn(max-min)
}
