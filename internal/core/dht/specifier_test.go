package dht

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTombstones(t *testing.T, kind KindID, spec ValueSpecifier) []*PreparedData {
	t.Helper()
	marks, err := tombstones(kind, spec, 256)
	require.NoError(t, err)
	return marks
}

// TestTombstones_Array 测试区间删除等价于逐下标删除
func TestTombstones_Array(t *testing.T) {
	ranged := mustTombstones(t, 2, ArraySpecifier{Ranges: []ArrayRange{{0, 3}}})
	var single []*PreparedData
	for i := uint32(0); i < 3; i++ {
		single = append(single, mustTombstones(t, 2, ArraySpecifier{Ranges: []ArrayRange{{i, i + 1}}})...)
	}
	assert.Equal(t, single, ranged)
	for _, p := range ranged {
		assert.False(t, p.Value.Exists())
		assert.Equal(t, uint32(0), p.LifeTime)
	}
}

// TestTombstones_Overlap 测试重叠区间中的下标只删除一次
func TestTombstones_Overlap(t *testing.T) {
	marks := mustTombstones(t, 2, ArraySpecifier{Ranges: []ArrayRange{{0, 3}, {1, 4}, {2, 2}}})
	var idx []uint32
	for _, m := range marks {
		idx = append(idx, m.Value.(ArrayValue).Index)
	}
	assert.Equal(t, []uint32{0, 1, 2, 3}, idx)
}

// TestTombstones_Other 测试单值与字典的删除标记
func TestTombstones_Other(t *testing.T) {
	assert.Len(t, mustTombstones(t, 1, SingleSpecifier{}), 1)

	marks := mustTombstones(t, 3, DictionarySpecifier{Keys: [][]byte{[]byte("a"), []byte("b")}})
	assert.Len(t, marks, 2)
	assert.Equal(t, []byte("b"), marks[1].Value.(DictionaryValue).Key)
	assert.Empty(t, mustTombstones(t, 3, DictionarySpecifier{}))
}

// TestTombstones_TooWide 测试超过上限的区间被拒绝而不展开
func TestTombstones_TooWide(t *testing.T) {
	_, err := tombstones(2, ArraySpecifier{Ranges: []ArrayRange{{0, 0xffffffff}}}, 256)
	assert.ErrorIs(t, err, ErrSelectionTooWide)

	// 重叠部分不计入上限
	marks, err := tombstones(2, ArraySpecifier{Ranges: []ArrayRange{{0, 4}, {0, 4}, {2, 4}}}, 4)
	require.NoError(t, err)
	assert.Len(t, marks, 4)

	_, err = tombstones(2, ArraySpecifier{Ranges: []ArrayRange{{0, 4}, {10, 11}}}, 4)
	assert.ErrorIs(t, err, ErrSelectionTooWide)
}

// TestSpecifier_Matches 测试选择器匹配
func TestSpecifier_Matches(t *testing.T) {
	arr := ArraySpecifier{Ranges: []ArrayRange{{2, 4}}}
	assert.False(t, arr.Matches(ArrayValue{Index: 1}))
	assert.True(t, arr.Matches(ArrayValue{Index: 2}))
	assert.True(t, arr.Matches(ArrayValue{Index: 3}))
	assert.False(t, arr.Matches(ArrayValue{Index: 4}))
	assert.False(t, arr.Matches(SingleValue{}))

	dict := DictionarySpecifier{Keys: [][]byte{[]byte("k")}}
	assert.True(t, dict.Matches(DictionaryValue{Key: []byte("k")}))
	assert.False(t, dict.Matches(DictionaryValue{Key: []byte("x")}))
	assert.True(t, DictionarySpecifier{}.Matches(DictionaryValue{Key: []byte("x")}))

	assert.True(t, SingleSpecifier{}.Matches(SingleValue{}))
	assert.False(t, SingleSpecifier{}.Matches(ArrayValue{}))
}
