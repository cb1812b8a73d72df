// Command genmock populates a spool directory with synthetic pending hazard
// reports plus photo sidecars. It goes through the actual domain, photo, and
// spool packages so the fixtures match real relay behavior, which makes the
// output usable for UI development against a relay that has never been
// offline, and for exercising cmd/validate.
//
// Usage:
//
//	go run ./cmd/genmock -dir ./spool -count 12 -photo-every 3
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log"
	"log/slog"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/seamark/hazard-relay/internal/domain"
	"github.com/seamark/hazard-relay/internal/photo"
	"github.com/seamark/hazard-relay/internal/spool"
)

var baseTime = time.Date(2026, time.March, 14, 8, 30, 0, 0, time.UTC)

// samples cycle when -count exceeds their number; coordinates get jittered so
// repeated entries stay distinguishable on a chart.
var samples = []domain.Draft{
	{Type: domain.TypeDebris, Severity: 3, Lat: 59.044, Lng: 5.612, Notes: "drifting timber bundle, roughly 4m"},
	{Type: domain.TypeObstruction, Severity: 4, Lat: 58.972, Lng: 5.731, Notes: "uncharted rock awash at low tide"},
	{Type: domain.TypeWildlife, Severity: 2, Lat: 59.121, Lng: 5.402, Notes: "pod of orcas crossing the fairway"},
	{Type: domain.TypePollution, Severity: 4, Lat: 58.899, Lng: 5.577, Notes: "diesel sheen about 200m along the breakwater"},
	{Type: domain.TypeWeather, Severity: 5, Lat: 59.310, Lng: 4.941, Notes: "squall line moving northeast"},
	{Type: domain.TypeOther, Severity: 1, Lat: 59.002, Lng: 5.699, Notes: "regatta buoys adrift"},
	{Type: domain.TypeDebris, Severity: 2, Lat: 58.950, Lng: 5.740, Notes: "lost deck cargo, two pallets"},
	{Type: domain.TypeObstruction, Severity: 3, Lat: 59.080, Lng: 5.550, Notes: "sunken skiff, mast visible"},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dir := flag.String("dir", "", "spool directory to populate")
	count := flag.Int("count", 12, "number of pending reports to generate")
	photoEvery := flag.Int("photo-every", 3, "attach a photo to every Nth report (0 disables photos)")
	seed := flag.Int64("seed", 1, "jitter seed")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -dir")
	}

	// Fixed clock so QueuedAt values are reproducible; each report queues
	// a few minutes after the previous one.
	fake := clockwork.NewFakeClockAt(baseTime)
	domain.SetClock(fake)
	defer domain.SetClock(nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := spool.New(*dir, 0, logger)
	if err != nil {
		return fmt.Errorf("open spool: %w", err)
	}
	if n := store.Count(); n > 0 {
		return fmt.Errorf("spool at %s already holds %d reports; refusing to mix fixtures into real data", *dir, n)
	}

	photos := photo.NewProcessor(1600, logger)
	rng := rand.New(rand.NewSource(*seed))

	typeCounts := map[string]int{}
	severityCounts := map[string]int{}
	withPhoto := 0

	for i := 0; i < *count; i++ {
		draft := samples[i%len(samples)]
		draft.Lat += (rng.Float64() - 0.5) * 0.02
		draft.Lng += (rng.Float64() - 0.5) * 0.02

		rpt, err := domain.NewReport(draft)
		if err != nil {
			return fmt.Errorf("report %d: %w", i, err)
		}

		var sidecar []byte
		if *photoEvery > 0 && i%*photoEvery == 0 {
			raw, err := makePhoto(i)
			if err != nil {
				return fmt.Errorf("render photo %d: %w", i, err)
			}
			processed, ext, err := photos.Process(raw)
			if err != nil {
				return fmt.Errorf("process photo %d: %w", i, err)
			}
			rpt.PhotoFile = rpt.ID + "." + ext
			sidecar = processed
			withPhoto++
		}

		if err := store.Save(rpt, sidecar); err != nil {
			return fmt.Errorf("save report %d: %w", i, err)
		}

		typeCounts[rpt.Type]++
		severityCounts[domain.SeverityLabel(rpt.Severity)]++
		fake.Advance(time.Duration(2+rng.Intn(9)) * time.Minute)
	}

	log.Printf("wrote %d pending reports to %s", *count, *dir)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", *count)
	fmt.Printf("With photo: %d\n", withPhoto)
	fmt.Printf("By type: debris=%d, obstruction=%d, wildlife=%d, pollution=%d, weather=%d, other=%d\n",
		typeCounts[domain.TypeDebris], typeCounts[domain.TypeObstruction],
		typeCounts[domain.TypeWildlife], typeCounts[domain.TypePollution],
		typeCounts[domain.TypeWeather], typeCounts[domain.TypeOther])
	fmt.Printf("By severity: minor=%d, moderate=%d, significant=%d, severe=%d, extreme=%d\n",
		severityCounts["minor"], severityCounts["moderate"],
		severityCounts["significant"], severityCounts["severe"], severityCounts["extreme"])
	return nil
}

// makePhoto renders a small flat-color JPEG. Real relay photos are camera
// shots; for fixtures all that matters is valid JPEG bytes that survive the
// photo pipeline.
func makePhoto(seed int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	fill := color.RGBA{
		R: uint8(40 + seed*37%160),
		G: uint8(80 + seed*53%120),
		B: 170,
		A: 255,
	}
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
