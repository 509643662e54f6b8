package recorder

import (
	"encoding/csv"
	"os"
	"strconv"
)

// csvSink CSV输出端
// 功能：把周期记录展开为行式CSV，每个交叉口一行
type csvSink struct {
	f *os.File
	w *csv.Writer
}

var csvHeader = []string{
	"cycle", "t", "n", "error", "u", "active",
	"intersection", "traffic_light", "main_green", "secondary_green",
	"main_queue", "secondary_queue", "fallback",
}

// newCSVSink 创建CSV输出端并写入表头
func newCSVSink(path string) (*csvSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s := &csvSink{f: f, w: csv.NewWriter(f)}
	if err := s.w.Write(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// write 写入一个周期的记录（每个交叉口展开为一行）
func (s *csvSink) write(rec CycleRecord) error {
	for _, sp := range rec.Splits {
		row := []string{
			strconv.FormatInt(int64(rec.Cycle), 10),
			strconv.FormatFloat(rec.T, 'f', 1, 64),
			strconv.FormatFloat(rec.N, 'f', 2, 64),
			strconv.FormatFloat(rec.Error, 'f', 2, 64),
			strconv.FormatFloat(rec.U, 'f', 2, 64),
			strconv.FormatBool(rec.Active),
			sp.ID,
			sp.TrafficLightID,
			strconv.FormatFloat(sp.MainGreen, 'f', 1, 64),
			strconv.FormatFloat(sp.SecondaryGreen, 'f', 1, 64),
			strconv.FormatFloat(sp.MainQueue, 'f', 1, 64),
			strconv.FormatFloat(sp.SecondaryQueue, 'f', 1, 64),
			strconv.FormatBool(sp.Fallback),
		}
		if err := s.w.Write(row); err != nil {
			return err
		}
	}
	s.w.Flush()
	return s.w.Error()
}

// close 冲刷缓冲并关闭文件
func (s *csvSink) close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
