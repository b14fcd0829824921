package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// 拉取运行中引擎的 /metrics 并打印核心指标，便于验证 Prometheus 抓取链路。
func main() {
	addr := flag.String("metricsAddr", "http://127.0.0.1:9100", "引擎 metrics 地址")
	prefix := flag.String("prefix", "hft_engine_", "要打印的指标前缀")
	watch := flag.Duration("watch", 0, "轮询间隔；0 表示只拉取一次")
	flag.Parse()

	for {
		if err := probe(*addr, *prefix); err != nil {
			log.Fatalf("拉取指标失败: %v", err)
		}
		if *watch <= 0 {
			return
		}
		time.Sleep(*watch)
		fmt.Println("---")
	}
}

func probe(addr, prefix string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimSuffix(addr, "/") + "/metrics")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	matched := 0
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, prefix) {
			fmt.Println(line)
			matched++
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if matched == 0 {
		return fmt.Errorf("no metrics with prefix %q", prefix)
	}
	return nil
}
