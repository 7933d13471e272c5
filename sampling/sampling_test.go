package sampling

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
)

func TestSampler_FullScanBelowThreshold(t *testing.T) {
	s, err := New(WithThreshold(1024))
	require.NoError(t, err)

	data := make([]byte, 1000)
	st, sample := s.Sample(data)
	require.Equal(t, format.SamplingFullScan, st.Mode)
	require.Equal(t, []int{0}, st.Points)
	require.Equal(t, 1000, st.SampleSize)
	require.Len(t, sample, 1000)
}

func TestSampler_Strided(t *testing.T) {
	s, err := New(WithThreshold(1024), WithPoints(4), WithWindowSize(100))
	require.NoError(t, err)

	data := make([]byte, 10_000)
	for i := range data {
		data[i] = byte(i / 100)
	}

	st, sample := s.Sample(data)
	require.Equal(t, format.SamplingStrided, st.Mode)
	require.Equal(t, []int{0, 3300, 6600, 9900}, st.Points)
	require.Equal(t, 400, st.SampleSize)
	require.Len(t, sample, 400)
	require.Equal(t, data[3300:3400], sample[100:200])
	require.Equal(t, data[9900:], sample[300:])
}

func TestSampler_SampleSizeBounded(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	for _, size := range []int{DefaultThreshold + 1, 10 << 20, 1 << 30} {
		st := s.Plan(size)
		require.Equal(t, format.SamplingStrided, st.Mode)
		require.Equal(t, DefaultPoints*DefaultWindowSize, st.SampleSize)
		require.Len(t, st.Points, DefaultPoints)
		require.Equal(t, size-DefaultWindowSize, st.Points[len(st.Points)-1])
		require.IsIncreasing(t, st.Points)
	}
}

func TestSampler_Deterministic(t *testing.T) {
	s, err := New(WithThreshold(4096), WithPoints(7), WithWindowSize(64))
	require.NoError(t, err)

	data := make([]byte, 123_457)
	st1, sample1 := s.Sample(data)
	st2, sample2 := s.Sample(data)
	require.Equal(t, st1, st2)
	require.Equal(t, sample1, sample2)
}

func TestSampler_WindowsExceedInput(t *testing.T) {
	s, err := New(WithThreshold(10), WithPoints(8), WithWindowSize(100))
	require.NoError(t, err)

	st := s.Plan(500)
	require.Equal(t, format.SamplingFullScan, st.Mode)
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(WithThreshold(0))
	require.ErrorIs(t, err, errs.ErrConfig)

	_, err = New(WithPoints(1))
	require.ErrorIs(t, err, errs.ErrConfig)

	_, err = New(WithWindowSize(-5))
	require.ErrorIs(t, err, errs.ErrConfig)
}
