package eodobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSummarizer struct{ mock.Mock }

func (m *mockSummarizer) SummarizeDay(t time.Time) (string, error) {
	args := m.Called(t)
	return args.String(0), args.Error(1)
}

func (m *mockSummarizer) SummarizeToday() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *mockSummarizer) ShouldRunNow() (bool, string) {
	args := m.Called()
	return args.Bool(0), args.String(1)
}

func TestWrapForwards(t *testing.T) {
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	inner := &mockSummarizer{}
	inner.On("SummarizeDay", day).Return("logs/eod_2024-03-09.csv", nil)
	inner.On("SummarizeToday").Return("", nil)
	inner.On("ShouldRunNow").Return(true, "logs/eod_2024-03-09.csv")

	s := Wrap(context.Background(), inner)

	p, err := s.SummarizeDay(day)
	require.NoError(t, err)
	assert.Equal(t, "logs/eod_2024-03-09.csv", p)

	p, err = s.SummarizeToday()
	require.NoError(t, err)
	assert.Empty(t, p)

	ok, p := s.ShouldRunNow()
	assert.True(t, ok)
	assert.NotEmpty(t, p)
	inner.AssertExpectations(t)
}

func TestWrapReturnsErrors(t *testing.T) {
	boom := errors.New("disk full")
	inner := &mockSummarizer{}
	inner.On("SummarizeDay", mock.Anything).Return("", boom)

	var ctx context.Context
	_, err := Wrap(ctx, inner).SummarizeDay(time.Now())
	assert.ErrorIs(t, err, boom)
}
