package vocab

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_AssignsSortedStableIDs(t *testing.T) {
	v, err := Build([]string{"cab", "bad", "abc"})
	require.NoError(t, err)
	assert.Equal(t, 4, v.Size()) // a b c d
	assert.Equal(t, []rune{'a', 'b', 'c', 'd'}, v.Runes())
	assert.Equal(t, 4, v.BlankID())
	assert.Equal(t, 5, v.NumClasses())
	assert.Equal(t, 3, v.MaxLabelLen())

	// Shuffled corpus yields the same mapping.
	v2, err := Build([]string{"abc", "cab", "bad"})
	require.NoError(t, err)
	assert.Equal(t, v.Runes(), v2.Runes())
}

func TestBuild_NormalizesLabels(t *testing.T) {
	// "e" + combining acute composes to the same rune as precomposed "é".
	v, err := Build([]string{"é"})
	require.NoError(t, err)
	assert.Equal(t, 1, v.Size())
	ids, err := v.Encode("é")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, ids)
}

func TestBuild_Empty(t *testing.T) {
	_, err := Build(nil)
	assert.Error(t, err)
	_, err = Build([]string{"", "  "})
	assert.Error(t, err)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	v, err := Build([]string{"7h3x9"})
	require.NoError(t, err)

	ids, err := v.Encode("3x7")
	require.NoError(t, err)
	s, err := v.Decode(ids)
	require.NoError(t, err)
	assert.Equal(t, "3x7", s)
}

func TestEncode_UnknownCharacter(t *testing.T) {
	v, err := Build([]string{"abc"})
	require.NoError(t, err)

	_, err = v.Encode("abz")
	require.Error(t, err)
	var unknown *UnknownCharacterError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, 'z', unknown.Char)

	_, err = v.EncodeRune('q')
	assert.Error(t, err)
}

func TestDecode_RejectsBlankAndOutOfRange(t *testing.T) {
	v, err := Build([]string{"ab"})
	require.NoError(t, err)

	for _, id := range []int{-1, v.BlankID(), v.BlankID() + 3} {
		_, err := v.DecodeID(id)
		require.Error(t, err, "id %d", id)
		var unknown *UnknownIDError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, id, unknown.ID)

		_, err = v.Decode([]int{0, id})
		assert.Error(t, err)
	}
}

func TestFromRunes_PreservesOrderAndRejectsDuplicates(t *testing.T) {
	v, err := FromRunes([]rune{'z', 'a', 'm'}, 6)
	require.NoError(t, err)
	assert.Equal(t, []rune{'z', 'a', 'm'}, v.Runes())
	id, err := v.EncodeRune('z')
	require.NoError(t, err)
	assert.Equal(t, 0, id)
	assert.Equal(t, 6, v.MaxLabelLen())

	_, err = FromRunes([]rune{'a', 'a'}, 1)
	assert.Error(t, err)
	_, err = FromRunes(nil, 0)
	assert.Error(t, err)
}
