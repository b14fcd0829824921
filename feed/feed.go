// Package feed 提供行情生产者：CSV回放、合成随机游走、以及真实WS行情。
// 所有生产者只做一件事：构造 queue.Item 并非阻塞推入ring，队列满时丢弃并计数。
package feed

import (
	"context"

	"hft-engine-go/queue"
)

// Producer 行情生产者。Run 阻塞直到 ctx 取消或数据耗尽。
type Producer interface {
	Run(ctx context.Context) error
}

// DropCounter 统计因队列满被丢弃的tick；monitor.Monitor 实现该接口。
type DropCounter interface {
	IncQueueDrop()
}

// push 非阻塞推入；丢弃走计数，不走日志（热路径）。
func push(ring *queue.Ring, drops DropCounter, it queue.Item) {
	if !ring.Push(it) && drops != nil {
		drops.IncQueueDrop()
	}
}
