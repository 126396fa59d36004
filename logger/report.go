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
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type stageStat struct {
	records int64
	batches int64
}

var (
	errorsReader      int64
	errorsWriter      int64
	warnsReader       int64
	warnsWriter       int64
	pagesRead         int64
	listingsRead      int64
	duplicatesDropped int64
	noiseFiltered     int64
	knownDropped      int64
	listingsWritten   int64
	stages            sync.Map // map[string]*stageStat
)

func recordWarn(component string) {
	if strings.Contains(component, "reader") {
		atomic.AddInt64(&warnsReader, 1)
	} else if strings.Contains(component, "writer") {
		atomic.AddInt64(&warnsWriter, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "reader") {
		atomic.AddInt64(&errorsReader, 1)
	} else if strings.Contains(component, "writer") {
		atomic.AddInt64(&errorsWriter, 1)
	}
}

// IncrementPageRead records one fetched search page and the number of
// listings it carried.
func IncrementPageRead(listings int) {
	atomic.AddInt64(&pagesRead, 1)
	atomic.AddInt64(&listingsRead, int64(listings))
	recordStage("search_rest", listings)
}

func AddDuplicatesDropped(n int) {
	atomic.AddInt64(&duplicatesDropped, int64(n))
	recordStage("dedupe", n)
}

func AddNoiseFiltered(n int) {
	atomic.AddInt64(&noiseFiltered, int64(n))
	recordStage("clothing_filter", n)
}

func AddKnownDropped(n int) {
	atomic.AddInt64(&knownDropped, int64(n))
	recordStage("persistence_gate", n)
}

func AddListingsWritten(n int) {
	atomic.AddInt64(&listingsWritten, int64(n))
	recordStage("dataset_append", n)
}

func recordStage(name string, records int) {
	v, _ := stages.LoadOrStore(name, &stageStat{})
	ss := v.(*stageStat)
	atomic.AddInt64(&ss.records, int64(records))
	atomic.AddInt64(&ss.batches, 1)
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

// StartReport begins periodic logging of system and pipeline statistics.
// Useful while a long pagination run is in flight.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

// ReportRun emits a single end-of-run report with the same content as the
// periodic one.
func ReportRun(ctx context.Context, log *Log) {
	logReport(ctx, log)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	netStats, _ := gnet.IOCounters(false)
	stageData := map[string]map[string]int64{}
	stages.Range(func(k, v any) bool {
		name := k.(string)
		ss := v.(*stageStat)
		stageData[name] = map[string]int64{
			"records": atomic.LoadInt64(&ss.records),
			"batches": atomic.LoadInt64(&ss.batches),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	bytesSent := uint64(0)
	bytesRecv := uint64(0)
	if len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}

	fields := Fields{
		"errors_reader":      atomic.LoadInt64(&errorsReader),
		"errors_writer":      atomic.LoadInt64(&errorsWriter),
		"warns_reader":       atomic.LoadInt64(&warnsReader),
		"warns_writer":       atomic.LoadInt64(&warnsWriter),
		"pages_read":         atomic.LoadInt64(&pagesRead),
		"listings_read":      atomic.LoadInt64(&listingsRead),
		"duplicates_dropped": atomic.LoadInt64(&duplicatesDropped),
		"noise_filtered":     atomic.LoadInt64(&noiseFiltered),
		"known_dropped":      atomic.LoadInt64(&knownDropped),
		"listings_written":   atomic.LoadInt64(&listingsWritten),
		"goroutines":         runtime.NumGoroutine(),
		"cpu_percent":        cpuPct,
		"memory_mb":          int64(memStats.Used) / 1024 / 1024,
		"disk_mb":            int64(diskStats.Used) / 1024 / 1024,
		"stages":             stageData,
		"net_bytes_sent":     int64(bytesSent),
		"net_bytes_recv":     int64(bytesRecv),
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsReader"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_reader"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsWriter"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_writer"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("WarnsReader"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_reader"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("WarnsWriter"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_writer"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("PagesRead"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["pages_read"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("ListingsRead"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["listings_read"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("DuplicatesDropped"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["duplicates_dropped"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("NoiseFiltered"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["noise_filtered"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("KnownDropped"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["known_dropped"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("ListingsWritten"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["listings_written"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		cwtypes.MetricDatum{MetricName: aws.String("NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
	)

	for name, stats := range stageData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("StageRecords"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Stage"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["records"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("StageBatches"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Stage"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["batches"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
