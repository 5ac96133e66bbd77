package archive

import (
	"context"
	"strconv"

	"github.com/FairForge/heritageload/internal/metrics"
)

type recorderObserver struct {
	rec *metrics.Recorder
}

// RecorderObserver records the built-in http_req_duration, http_req_failed
// and http_reqs metrics for every exchange.
func RecorderObserver(rec *metrics.Recorder) Observer {
	return recorderObserver{rec: rec}
}

func (o recorderObserver) ObserveRequest(ctx context.Context, info RequestInfo) {
	tags := metrics.Tags{"method": info.Method, "name": info.Name}
	if info.Status > 0 {
		tags["status"] = strconv.Itoa(info.Status)
	}
	o.rec.AddCount(ctx, metrics.HTTPReqs, 1, tags)
	o.rec.AddTrend(ctx, metrics.HTTPReqDuration, info.Duration, tags)
	o.rec.AddRate(ctx, metrics.HTTPReqFailed, info.Failed(), tags)
}
