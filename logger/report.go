package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type streamStat struct {
	messages int64
	bytes    int64
}

var (
	errorsHub         int64
	errorsWeb         int64
	warnsHub          int64
	warnsWeb          int64
	signalsReceived   int64
	handlerFailures   int64
	pagesServed       int64
	notificationsSent int64
	streams           sync.Map // map[string]*streamStat
)

func recordWarn(component string) {
	if strings.Contains(component, "hub") {
		atomic.AddInt64(&warnsHub, 1)
	} else if strings.Contains(component, "web") {
		atomic.AddInt64(&warnsWeb, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "hub") {
		atomic.AddInt64(&errorsHub, 1)
	} else if strings.Contains(component, "web") {
		atomic.AddInt64(&errorsWeb, 1)
	}
}

// IncrementSignalReceived records one inbound hub message of the given kind
// and its payload size.
func IncrementSignalReceived(kind string, size int) {
	atomic.AddInt64(&signalsReceived, 1)
	recordStream("hub_"+kind, size)
}

// IncrementHandlerFailure records a message handler that returned an error or
// panicked.
func IncrementHandlerFailure() {
	atomic.AddInt64(&handlerFailures, 1)
}

// IncrementPageServed records one rendered dashboard page.
func IncrementPageServed(page string) {
	atomic.AddInt64(&pagesServed, 1)
	recordStream("web_"+page, 0)
}

// IncrementNotificationSent records one delivered notification.
func IncrementNotificationSent() {
	atomic.AddInt64(&notificationsSent, 1)
}

func recordStream(name string, size int) {
	v, _ := streams.LoadOrStore(name, &streamStat{})
	cs := v.(*streamStat)
	atomic.AddInt64(&cs.messages, 1)
	atomic.AddInt64(&cs.bytes, int64(size))
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and stream statistics.
// It exposes the internal startReport function for use by other packages.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	streamData := map[string]map[string]int64{}
	streams.Range(func(k, v any) bool {
		name := k.(string)
		cs := v.(*streamStat)
		streamData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&cs.messages),
			"bytes":    atomic.LoadInt64(&cs.bytes),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	fields := Fields{
		"errors_hub":         atomic.LoadInt64(&errorsHub),
		"errors_web":         atomic.LoadInt64(&errorsWeb),
		"warns_hub":          atomic.LoadInt64(&warnsHub),
		"warns_web":          atomic.LoadInt64(&warnsWeb),
		"signals_received":   atomic.LoadInt64(&signalsReceived),
		"handler_failures":   atomic.LoadInt64(&handlerFailures),
		"pages_served":       atomic.LoadInt64(&pagesServed),
		"notifications_sent": atomic.LoadInt64(&notificationsSent),
		"goroutines":         runtime.NumGoroutine(),
		"cpu_percent":        cpuPct,
		"memory_mb":          int64(memStats.Used) / 1024 / 1024,
		"disk_mb":            int64(diskStats.Used) / 1024 / 1024,
		"streams":            streamData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("TradeHub-CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("TradeHub-MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("TradeHub-DiskMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(diskStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("TradeHub-ErrorsHub"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorsHub)))},
		cwtypes.MetricDatum{MetricName: aws.String("TradeHub-ErrorsWeb"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorsWeb)))},
		cwtypes.MetricDatum{MetricName: aws.String("TradeHub-WarnsHub"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&warnsHub)))},
		cwtypes.MetricDatum{MetricName: aws.String("TradeHub-WarnsWeb"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&warnsWeb)))},
		cwtypes.MetricDatum{MetricName: aws.String("TradeHub-SignalsReceived"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&signalsReceived)))},
		cwtypes.MetricDatum{MetricName: aws.String("TradeHub-HandlerFailures"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&handlerFailures)))},
		cwtypes.MetricDatum{MetricName: aws.String("TradeHub-PagesServed"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&pagesServed)))},
		cwtypes.MetricDatum{MetricName: aws.String("TradeHub-NotificationsSent"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&notificationsSent)))},
	)

	for name, stats := range streamData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("TradeHub-StreamMessages"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Stream"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["messages"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("TradeHub-StreamBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Stream"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["bytes"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
