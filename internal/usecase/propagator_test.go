package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rerouting-service/internal/domain"
)

func chain(times ...domain.ClockTime) []domain.Stop {
	stops := make([]domain.Stop, 0, len(times)/2)
	for i := 0; i+1 < len(times); i += 2 {
		stops = append(stops, domain.Stop{ID: int64(i/2 + 1), ArrivalTime: times[i], DepartureTime: times[i+1]})
	}
	return stops
}

func TestPropagateTimes(t *testing.T) {
	stops := chain("07:55", "08:00", "00:00", "00:00", "00:00", "00:00")
	legs := []domain.RouteLeg{{DurationSeconds: 125}, {DurationSeconds: 400}}

	got, err := PropagateTimes(stops, legs, 300*time.Second)
	require.NoError(t, err)

	assert.Equal(t, domain.ClockTime("08:00"), got[0].DepartureTime, "origin untouched")
	assert.Equal(t, domain.ClockTime("08:03"), got[1].ArrivalTime)
	assert.Equal(t, domain.ClockTime("08:08"), got[1].DepartureTime)
	assert.Equal(t, domain.ClockTime("08:15"), got[2].ArrivalTime)
	assert.Equal(t, domain.ClockTime("08:20"), got[2].DepartureTime)

	assert.Equal(t, domain.ClockTime("00:00"), stops[1].ArrivalTime, "input is not mutated")
}

func TestPropagateTimes_EmptyLegs(t *testing.T) {
	stops := chain("07:55", "08:00", "08:10", "08:12")

	got, err := PropagateTimes(stops, nil, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, stops, got)
}

func TestPropagateTimes_MoreLegsThanStops(t *testing.T) {
	stops := chain("08:00", "08:00", "00:00", "00:00")
	legs := []domain.RouteLeg{{DurationSeconds: 60}, {DurationSeconds: 60}, {DurationSeconds: 60}}

	got, err := PropagateTimes(stops, legs, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.ClockTime("08:01"), got[1].ArrivalTime)
	assert.Equal(t, domain.ClockTime("08:01"), got[1].DepartureTime)
}

func TestPropagateTimes_ExactMinutesNotRoundedUp(t *testing.T) {
	stops := chain("08:00", "08:00", "00:00", "00:00")
	got, err := PropagateTimes(stops, []domain.RouteLeg{{DurationSeconds: 120}}, 61*time.Second)
	require.NoError(t, err)
	assert.Equal(t, domain.ClockTime("08:02"), got[1].ArrivalTime)
	assert.Equal(t, domain.ClockTime("08:04"), got[1].DepartureTime)
}

func TestPropagateTimes_PastMidnight(t *testing.T) {
	stops := chain("23:50", "23:55", "00:00", "00:00", "00:00", "00:00")
	legs := []domain.RouteLeg{{DurationSeconds: 600}, {DurationSeconds: 600}}

	got, err := PropagateTimes(stops, legs, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, domain.ClockTime("00:05"), got[1].ArrivalTime)
	assert.Equal(t, domain.ClockTime("00:10"), got[1].DepartureTime)
	assert.Equal(t, domain.ClockTime("00:20"), got[2].ArrivalTime)
}

func TestPropagateTimes_InvalidOriginTime(t *testing.T) {
	stops := chain("xx", "yy", "00:00", "00:00")
	_, err := PropagateTimes(stops, []domain.RouteLeg{{DurationSeconds: 60}}, 0)
	assert.Error(t, err)
}

func TestDwellTime(t *testing.T) {
	d, err := DwellTime(domain.Stop{ArrivalTime: "07:55", DepartureTime: "08:00"})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)

	d, err = DwellTime(domain.Stop{ArrivalTime: "08:00", DepartureTime: "07:55"})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d, "absolute difference")

	_, err = DwellTime(domain.Stop{ArrivalTime: "bad", DepartureTime: "08:00"})
	assert.Error(t, err)
}

func TestCeilMinute(t *testing.T) {
	assert.Equal(t, time.Duration(0), ceilMinute(0))
	assert.Equal(t, time.Minute, ceilMinute(time.Second))
	assert.Equal(t, 3*time.Minute, ceilMinute(125*time.Second))
	assert.Equal(t, 2*time.Minute, ceilMinute(120*time.Second))
}
