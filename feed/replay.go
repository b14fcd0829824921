package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"hft-engine-go/infrastructure/logger"
	"hft-engine-go/market"
	"hft-engine-go/queue"
)

// replayColumns CSV列数：ts_ns,symbol,bid_px,bid_sz,ask_px,ask_sz,
// bid2_px,bid2_sz,ask2_px,ask2_sz,volume
const replayColumns = 11

// Replay 从CSV文件回放历史行情。Speed 为回放倍速：1.0 按原始
// tick间隔回放，2.0 加速一倍，0 表示不节流全速推送。
type Replay struct {
	Path   string
	Speed  float64
	Ring   *queue.Ring
	Drops  DropCounter
	Logger *logger.Logger
}

// Run 顺序读取并推送，直到文件结束或 ctx 取消。
func (r *Replay) Run(ctx context.Context) error {
	f, err := os.Open(r.Path)
	if err != nil {
		return fmt.Errorf("open replay file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = replayColumns

	var (
		prevTs uint64
		count  int
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read replay record: %w", err)
		}
		// 首行允许是表头
		if count == 0 && record[0] == "ts_ns" {
			continue
		}

		it, err := parseRecord(record)
		if err != nil {
			return fmt.Errorf("record %d: %w", count+1, err)
		}

		// 按原始时间差节流
		if r.Speed > 0 && prevTs > 0 && it.Tick.TsNs > prevTs {
			delay := time.Duration(float64(it.Tick.TsNs-prevTs) / r.Speed)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		prevTs = it.Tick.TsNs

		push(r.Ring, r.Drops, it)
		count++
	}

	if r.Logger != nil {
		r.Logger.Info("replay finished",
			zap.String("path", r.Path),
			zap.Int("ticks", count))
	}
	return nil
}

func parseRecord(record []string) (queue.Item, error) {
	tsNs, err := strconv.ParseUint(record[0], 10, 64)
	if err != nil {
		return queue.Item{}, fmt.Errorf("ts_ns: %w", err)
	}
	fields := make([]float64, 8)
	for i := 0; i < 8; i++ {
		v, err := strconv.ParseFloat(record[2+i], 64)
		if err != nil {
			return queue.Item{}, fmt.Errorf("column %d: %w", 2+i, err)
		}
		fields[i] = v
	}
	volume, err := strconv.ParseUint(record[10], 10, 64)
	if err != nil {
		return queue.Item{}, fmt.Errorf("volume: %w", err)
	}

	return queue.Item{
		Symbol: record[1],
		Tick: market.NewTick(tsNs,
			fields[0], fields[1], fields[2], fields[3],
			fields[4], fields[5], fields[6], fields[7],
			volume),
	}, nil
}
