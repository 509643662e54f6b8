package recorder_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/perimeter-gating/recorder"
	"github.com/tsinghua-fib-lab/perimeter-gating/utils/config"
)

func sampleRecord() recorder.CycleRecord {
	return recorder.CycleRecord{
		Cycle:  7,
		T:      630,
		N:      132.5,
		Error:  17.5,
		U:      12.25,
		Active: true,
		Splits: []recorder.SplitRecord{
			{ID: "a", TrafficLightID: "tl_a", MainGreen: 40, SecondaryGreen: 44, MainQueue: 10, SecondaryQueue: 5},
			{ID: "b", TrafficLightID: "tl_b", MainGreen: 15, SecondaryGreen: 69, Fallback: true},
		},
	}
}

func TestCSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cycles.csv")
	r, err := recorder.New(config.Output{CSV: path})
	require.Nil(t, err)

	r.Record(sampleRecord())
	r.Close()

	f, err := os.Open(path)
	require.Nil(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.Nil(t, err)

	// 表头 + 每个交叉口一行
	require.Len(t, rows, 3)
	assert.Equal(t, "cycle", rows[0][0])
	assert.Equal(t, []string{
		"7", "630.0", "132.50", "17.50", "12.25", "true",
		"a", "tl_a", "40.0", "44.0", "10.0", "5.0", "false",
	}, rows[1])
	assert.Equal(t, "b", rows[2][6])
	assert.Equal(t, "true", rows[2][12])
}

func TestNoOutputConfigured(t *testing.T) {
	r, err := recorder.New(config.Output{})
	require.Nil(t, err)

	// 无输出端时记录为空操作
	r.Record(sampleRecord())
	r.Close()
}

func TestNilRecorder(t *testing.T) {
	var r *recorder.Recorder
	r.Record(sampleRecord())
	r.Close()
}

func TestCSVSinkBadPath(t *testing.T) {
	_, err := recorder.New(config.Output{CSV: filepath.Join(t.TempDir(), "missing", "cycles.csv")})
	assert.NotNil(t, err)
}
