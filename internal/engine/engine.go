package engine

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/img2footprint/internal/analyzer"
	"github.com/ivlev/img2footprint/internal/codec"
	"github.com/ivlev/img2footprint/internal/config"
	"github.com/ivlev/img2footprint/internal/footprint"
	"github.com/ivlev/img2footprint/internal/masked"
	"github.com/ivlev/img2footprint/internal/render"
	"github.com/ivlev/img2footprint/internal/report"
	"github.com/ivlev/img2footprint/internal/source"
	"github.com/ivlev/img2footprint/internal/store"
	"github.com/ivlev/img2footprint/internal/system"
)

// ExtractProject runs the detect → extract → persist pipeline over every
// frame of a source.
type ExtractProject struct {
	Config   *config.Config
	Source   source.Source
	Detector analyzer.Detector
	Store    *store.Store // optional catalog
}

func NewExtractProject(cfg *config.Config, src source.Source, det analyzer.Detector, st *store.Store) *ExtractProject {
	return &ExtractProject{
		Config:   cfg,
		Source:   src,
		Detector: det,
		Store:    st,
	}
}

func (p *ExtractProject) Run(ctx context.Context) error {
	startTime := time.Now()

	frameCount := p.Source.FrameCount()
	if frameCount == 0 {
		return fmt.Errorf("источник не содержит кадров")
	}

	if err := os.MkdirAll(p.Config.OutputDir, 0755); err != nil {
		return err
	}

	workers := p.Config.Workers
	if workers <= 0 {
		workers = system.Workers()
	}
	if workers > frameCount {
		workers = frameCount
	}

	fmt.Println("--- [PROJECT: FOOTPRINT EXTRACTION] ---")
	fmt.Printf("[*] Источник: %s | Кадров: %d\n", p.Config.InputPath, frameCount)
	fmt.Printf("[*] Детектор: %s | Воркеров: %d\n", p.Config.Detector, workers)
	fmt.Println("---------------------------------------")

	var mu sync.Mutex
	frames := make([]report.Frame, frameCount)
	total := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < frameCount; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			frame, n, err := p.processFrame(i)
			if err != nil {
				return fmt.Errorf("кадр %d (%s): %w", i, p.Source.FrameName(i), err)
			}

			mu.Lock()
			frames[i] = *frame
			total += n
			mu.Unlock()

			fmt.Printf("[>] Готово: %d/%d (%d футпринтов)\n", i+1, frameCount, n)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	reportPath := report.GenerateReportPath(p.Config.OutputDir)
	r := &report.Report{
		Version: "1.0",
		Input:   p.Config.InputPath,
		Frames:  frames,
	}
	if err := report.WriteReport(r, reportPath); err != nil {
		return fmt.Errorf("ошибка записи отчёта: %w", err)
	}
	fmt.Printf("[+++] Успех! Отчёт сохранён: %s\n", reportPath)

	if p.Config.ShowStats {
		p.printStats(startTime, frameCount, total)
	}
	return nil
}

// processFrame runs detection and extraction for one frame and writes its
// artifacts. Returns the report frame and the footprint count.
func (p *ExtractProject) processFrame(index int) (*report.Frame, int, error) {
	img, err := p.Source.RenderFrame(index)
	if err != nil {
		return nil, 0, fmt.Errorf("render: %w", err)
	}

	mi := masked.FromGray(img)
	feet, err := p.Detector.Detect(mi)
	if err != nil {
		return nil, 0, fmt.Errorf("detect: %w", err)
	}

	// Largest objects first, so artifact numbering is stable and
	// meaningful.
	sort.Slice(feet, func(i, j int) bool { return feet[i].Area() > feet[j].Area() })

	name := baseName(p.Source.FrameName(index))
	frame := &report.Frame{Input: p.Source.FrameName(index)}

	var ctrl *footprint.HeavyCtrl
	if p.Config.LiftSources {
		ctrl = &footprint.HeavyCtrl{ModifySource: footprint.ModifySet}
	}

	heavies := make([]*footprint.Footprint, 0, len(feet))
	for fi, f := range feet {
		heavy, err := footprint.MakeHeavy(f, mi, ctrl)
		if err != nil {
			return nil, 0, fmt.Errorf("extract footprint %d: %w", fi, err)
		}
		heavies = append(heavies, heavy)

		path := filepath.Join(p.Config.OutputDir, fmt.Sprintf("%s_fp%03d.fp", name, fi))
		if err := codec.WriteFile(path, heavy); err != nil {
			return nil, 0, fmt.Errorf("write %s: %w", path, err)
		}

		if p.Store != nil {
			blob, err := encodeBlob(heavy)
			if err != nil {
				return nil, 0, err
			}
			if err := p.Store.Insert(heavy, frame.Input, blob); err != nil {
				log.Printf("[!] Не удалось записать футпринт в каталог: %v", err)
			}
		}

		bbox := heavy.BBox()
		frame.Footprints = append(frame.Footprints, report.Entry{
			ID:    heavy.ID.String(),
			Area:  heavy.Area(),
			BBox:  report.Rectangle{X: bbox.X0, Y: bbox.Y0, W: bbox.Width(), H: bbox.Height()},
			Peaks: len(heavy.Peaks()),
			File:  path,
		})
	}

	if p.Config.Overlay {
		overlay := render.Overlay(mi, heavies)
		scaled := render.Scale(overlay, p.Config.OverlayScale)
		overlayPath := filepath.Join(p.Config.OutputDir, name+"_overlay.png")
		if err := render.SavePNG(scaled, overlayPath); err != nil {
			log.Printf("[!] Не удалось сохранить оверлей %s: %v", overlayPath, err)
		}
		system.PutImage(overlay)
	}

	return frame, len(heavies), nil
}

func (p *ExtractProject) printStats(startTime time.Time, frameCount, total int) {
	totalTime := time.Since(startTime)
	fps := float64(frameCount) / totalTime.Seconds()

	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Frames: %d\n"+
			"Footprints: %d\n"+
			"Effective FPS: %.2f\n"+
			"----------------------------\n",
		p.Config.BuildVersion, totalTime.Seconds(), frameCount, total, fps,
	)
	fmt.Print(report)

	logEntry := fmt.Sprintf("[%s] Build: %s | Input: %s | Frames: %d | Footprints: %d | Total: %.2fs | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		filepath.Base(p.Config.InputPath),
		frameCount,
		total,
		totalTime.Seconds(),
		fps,
	)

	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
	}
}

func encodeBlob(f *footprint.Footprint) ([]byte, error) {
	var buf bytes.Buffer
	if err := codec.Encode(&buf, f); err != nil {
		return nil, fmt.Errorf("encode blob: %w", err)
	}
	return buf.Bytes(), nil
}

func baseName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
