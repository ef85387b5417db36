// README: Bench cases covering backends, the ride lifecycle, double booking and throughput.
package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Far away from everything else the bench registers, so nearest matching
// only ever sees drivers from the current case.
var (
	benchPickup  = map[string]any{"lat": -33.8688, "lng": 151.2093, "label": "bench pickup"}
	benchDropoff = map[string]any{"lat": -33.9173, "lng": 151.2313, "label": "bench dropoff"}
)

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: StatusSkip, Note: "db not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.db.Ping(ctx); err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			return Result{Status: StatusPass}
		}},
		{Name: "Env: Redis connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return Result{Status: StatusSkip, Note: "redis not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.redis.Ping(ctx).Err(); err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			return Result{Status: StatusPass}
		}},
		httpCase(http.MethodGet, "/health", nil, http.StatusOK),
		{Name: "Fleet: register rider and driver", Run: func(ctx context.Context, r *Runner) Result {
			if res := r.expect(ctx, http.MethodPost, "/api/riders", map[string]any{
				"rider_id": r.id("R", 1), "name": "Bench Rider", "location": benchPickup,
			}, http.StatusCreated); res.Status != StatusPass {
				return res
			}
			return r.expect(ctx, http.MethodPost, "/api/drivers", map[string]any{
				"driver_id": r.id("D", 1), "name": "Bench Driver", "vehicle_class": "suv", "location": benchPickup,
			}, http.StatusCreated)
		}},
		{Name: "Ride: request matches driver", Run: func(ctx context.Context, r *Runner) Result {
			var body struct {
				RideID   string `json:"ride_id"`
				DriverID string `json:"driver_id"`
			}
			res := r.call(ctx, http.MethodPost, "/api/rides", r.rideRequest(1, "suv"), &body)
			if res.Status != StatusPass {
				return res
			}
			if body.DriverID != r.id("D", 1) {
				return Result{Status: StatusFail, Note: "matched " + body.DriverID}
			}
			r.rideID = body.RideID
			return res
		}},
		{Name: "Ride: start and complete", Run: func(ctx context.Context, r *Runner) Result {
			if r.rideID == "" {
				return Result{Status: StatusSkip, Note: "no ride"}
			}
			if res := r.expect(ctx, http.MethodPost, "/api/rides/"+r.rideID+"/start", nil, http.StatusOK); res.Status != StatusPass {
				return res
			}
			var body struct {
				Status string  `json:"status"`
				Fare   float64 `json:"fare"`
			}
			res := r.call(ctx, http.MethodPost, "/api/rides/"+r.rideID+"/complete", nil, &body)
			if res.Status == StatusPass && (body.Status != "completed" || body.Fare <= 0) {
				return Result{Status: StatusFail, Note: fmt.Sprintf("status=%s fare=%.2f", body.Status, body.Fare)}
			}
			return res
		}},
		{Name: "Ride: complete twice conflicts", Run: func(ctx context.Context, r *Runner) Result {
			if r.rideID == "" {
				return Result{Status: StatusSkip, Note: "no ride"}
			}
			return r.expect(ctx, http.MethodPost, "/api/rides/"+r.rideID+"/complete", nil, http.StatusConflict)
		}},
		httpCase(http.MethodGet, "/api/rides/RIDE_0", nil, http.StatusNotFound),
		{Name: "Ride: concurrent requests book one driver once", Run: concurrentRequests},
		{Name: "Perf: ride request load", Run: perfLoad},
	}
}

func (r *Runner) rideRequest(rider int, class string) map[string]any {
	return map[string]any{
		"rider_id":      r.id("R", rider),
		"pickup":        benchPickup,
		"dropoff":       benchDropoff,
		"vehicle_class": class,
	}
}

func httpCase(method, path string, body any, want int) TestCase {
	return TestCase{
		Name: fmt.Sprintf("HTTP: %s %s -> %d", method, path, want),
		Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, method, path, body, want)
		},
	}
}

func (r *Runner) expect(ctx context.Context, method, path string, body any, want int) Result {
	status, latency, err := r.do(ctx, method, path, body, nil)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if status != want {
		return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d want=%d", status, want)}
	}
	return Result{Status: StatusPass, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
}

// call expects a 2xx response and decodes it into out.
func (r *Runner) call(ctx context.Context, method, path string, body, out any) Result {
	status, latency, err := r.do(ctx, method, path, body, out)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if status < 200 || status >= 300 {
		return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
	}
	return Result{Status: StatusPass, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
}

func (r *Runner) do(ctx context.Context, method, path string, body, out any) (int, time.Duration, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	latency := time.Since(start)
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, latency, err
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, latency, nil
}

// concurrentRequests fires many requests for a class with a single available
// driver; exactly one may succeed.
func concurrentRequests(ctx context.Context, r *Runner) Result {
	if res := r.expect(ctx, http.MethodPost, "/api/drivers", map[string]any{
		"driver_id": r.id("D", 2), "name": "Only Auto", "vehicle_class": "auto", "location": benchPickup,
	}, http.StatusCreated); res.Status != StatusPass {
		return res
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succ      int
		conflicts int
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _, err := r.do(ctx, http.MethodPost, "/api/rides", r.rideRequest(1, "auto"), nil)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case status == http.StatusCreated:
				succ++
			case status == http.StatusConflict:
				conflicts++
			}
		}()
	}
	wg.Wait()

	note := fmt.Sprintf("success=%d conflicts=%d", succ, conflicts)
	if succ == 1 && conflicts == r.cfg.Concurrency-1 {
		return Result{Status: StatusPass, Note: note}
	}
	return Result{Status: StatusFail, Note: note}
}

// perfLoad measures request throughput. Once drivers run out requests answer
// 409, which still counts as served.
func perfLoad(ctx context.Context, r *Runner) Result {
	end := time.Now().Add(r.cfg.Duration)
	var (
		mu       sync.Mutex
		count    int64
		errCount int64
		wg       sync.WaitGroup
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				status, _, err := r.do(ctx, http.MethodPost, "/api/rides", r.rideRequest(1, "bike"), nil)
				mu.Lock()
				if err != nil || status >= 500 {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: StatusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}
