// Copyright 2025 Synopsys, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoExtraPadding(t *testing.T) {
	// struct { int x : 10; int y : 12; } with x = 0x2AA, y = 0xDB6 packs
	// bit-contiguously: y above x.
	x := BinaryValue("1010101010")
	y := BinaryValue("110110110110")
	layout := noExtraPadding([]BinaryValue{x, y})
	assert.Equal(t, "0x36daaa", layout.Hex().String())
	assert.Equal(t, "0x3fffff", layout.Mask().Hex().String())
}

func TestExtraPadding(t *testing.T) {
	// With per-unit padding, x fills a 16-bit unit before y begins.
	x := BinaryValue("1010101010")
	y := BinaryValue("110110110110")
	layout := extraPadding([]BinaryValue{x, y}, 16)
	assert.Equal(t, "0xdb602aa", layout.Hex().String())
	assert.Equal(t, "0xfff03ff", layout.Mask().Hex().String())
}

func TestLittleToBigEndianIdentity(t *testing.T) {
	// Involution on byte-aligned patterns.
	for _, s := range []string{
		"1101101101101010",
		"NNNN110110110110NNNNNN1010101010",
		"11111111",
	} {
		b := BinaryValue(s)
		assert.Equal(t, b, littleToBigEndian(littleToBigEndian(b)), s)
	}
}

func TestLittleToBigEndian(t *testing.T) {
	// 0xAABB byte-swaps to 0xBBAA.
	b := hexToBinary(mustHex("0xaabb"))
	swapped := littleToBigEndian(b)
	assert.True(t, swapped.Hex().Equal(mustHex("0xbbaa")))
}

func TestSplitUpperLower(t *testing.T) {
	upper, lower := splitUpperLower(BinaryValue("111100001111"), 8)
	assert.Equal(t, BinaryValue("1111"), upper)
	assert.Equal(t, BinaryValue("00001111"), lower)

	upper, lower = splitUpperLower(BinaryValue("1010"), 8)
	assert.Equal(t, BinaryValue(""), upper)
	assert.Equal(t, BinaryValue("1010"), lower)
}

func TestDrawBitFieldWidths(t *testing.T) {
	e := NewEncoder(11)
	for i := 0; i < 100; i++ {
		w0, w1 := drawBitFieldWidths(e, 32, true)
		require.Greater(t, w0+w1, 32)
		require.LessOrEqual(t, w0, 24)
		require.LessOrEqual(t, w1, 24)

		w0, w1 = drawBitFieldWidths(e, 32, false)
		require.Less(t, w0+w1, 32)
		require.Greater(t, w0+w1, 16)
	}
}

func TestGenerateBitField(t *testing.T) {
	target := newTestTarget(t)
	e := NewEncoder(5)
	src := GenerateBitField(target, e)

	assert.Contains(t, src, "union union_char_0 {")
	assert.Contains(t, src, "unsigned long long values[2];")
	assert.Contains(t, src, "unsigned short x0 :")
	assert.Contains(t, src, "unsigned long long x0 :")
	assert.Contains(t, src, `printf("No extra padding.:");`)
	assert.Contains(t, src, `printf("Extra padding.:");`)
	assert.Contains(t, src, `printf("Little-endian.");`)
	assert.Contains(t, src, "calculate_char_0();")
	assert.Contains(t, src, "int main (void)")

	// long long probes compare 64-bit halves separately.
	assert.Contains(t, src, "unsigned long long lower_bits")
	assert.Contains(t, src, "upper_bits")

	// 5 dtypes × 3 rounds × 2 relations.
	assert.Equal(t, 30, strings.Count(src, "void calculate_"))
}

func TestParseBitFieldVotes(t *testing.T) {
	stdout := `short_0:>:Extra padding.:Little-endian.
short_1:<:No extra padding.:Little-endian.
int_2:>:Extra padding.:Little-endian.
long_long_3:<:No extra padding.:Little-endian.
char_4:<:No extra padding.
`
	votes := parseBitFieldVotes(stdout)
	require.Len(t, votes, 5)
	assert.Equal(t, "short", votes[0].dtype)
	assert.Equal(t, ">", votes[0].sign)
	assert.Equal(t, "Extra padding.", votes[0].padding)
	assert.Equal(t, "Little-endian.", votes[0].endian)
	assert.Equal(t, "long_long", votes[3].dtype)
	assert.Equal(t, "char", votes[4].dtype)
	assert.Equal(t, "", votes[4].endian)
}

func TestSummarizeBitFields(t *testing.T) {
	stdout := `short_0:>:Extra padding.:Little-endian.
short_1:<:No extra padding.:Little-endian.
int_2:>:Extra padding.:Little-endian.
int_3:<:No extra padding.:Little-endian.
`
	summary, err := summarizeBitFields(parseBitFieldVotes(stdout))
	require.NoError(t, err)
	assert.Contains(t, summary, "Bit-Field test:")
	assert.Contains(t, summary, "- sum(bit-fields) > sizeof(dtype)\n  - Extra padding.")
	assert.Contains(t, summary, "- sum(bit-fields) < sizeof(dtype)\n  - No extra padding.")
	assert.Contains(t, summary, "- Little-endian.")
	// A single observed endianness collapses to one trailing line.
	assert.Equal(t, 1, strings.Count(summary, "Little-endian."))

	_, err = summarizeBitFields(nil)
	assert.Error(t, err)
}

func TestSummarizeBitFieldsMixedEndian(t *testing.T) {
	stdout := `int_0:>:Extra padding.:Little-endian.
int_1:>:Extra padding.:Little-endian.
int_2:<:No extra padding.:Big-endian.
`
	summary, err := summarizeBitFields(parseBitFieldVotes(stdout))
	require.NoError(t, err)
	assert.Contains(t, summary, "  - Little-endian.")
	assert.Contains(t, summary, "  - Big-endian.")
}
