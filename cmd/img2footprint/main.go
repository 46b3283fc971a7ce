package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ivlev/img2footprint/internal/analyzer"
	"github.com/ivlev/img2footprint/internal/codec"
	"github.com/ivlev/img2footprint/internal/config"
	"github.com/ivlev/img2footprint/internal/engine"
	"github.com/ivlev/img2footprint/internal/footprint"
	"github.com/ivlev/img2footprint/internal/source"
	"github.com/ivlev/img2footprint/internal/store"
	"github.com/ivlev/img2footprint/internal/system"
)

var buildVersion = "dev"

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	// Создаем нужные директории, если их нет
	dirs := []string{"input/images", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	configPtr := flag.String("config", "", "Путь к YAML-конфигу (флаги имеют приоритет)")
	inputPtr := flag.String("input", "", "Путь к изображению или папке с кадрами (по умолчанию: самый свежий файл в input/images/)")
	outputPtr := flag.String("output", "output", "Папка для артефактов (.fp, оверлеи, отчёты)")
	storePtr := flag.String("store", "", "Путь к sqlite-каталогу футпринтов (пусто — без каталога)")
	detectorPtr := flag.String("detector", "threshold", "Вариант детектора: threshold")
	thresholdPtr := flag.Float64("threshold", 0, "Абсолютный порог яркости (0 — статистический)")
	nsigmaPtr := flag.Float64("nsigma", 5.0, "Порог в сигмах над средним (при threshold=0)")
	minAreaPtr := flag.Int("min-area", 4, "Минимальная площадь футпринта в пикселях")
	workersPtr := flag.Int("workers", 0, "Потоки (0 — по ресурсам системы)")
	liftPtr := flag.Bool("lift", false, "Обнулять пиксели источника под извлечёнными футпринтами")
	overlayPtr := flag.Bool("overlay", false, "Сохранять PNG-оверлеи найденных футпринтов")
	overlayScalePtr := flag.Int("overlay-scale", 1, "Целочисленный масштаб оверлея")
	statsPtr := flag.Bool("stats", false, "Печатать отчёт о производительности")
	infoPtr := flag.String("info", "", "Показать содержимое .fp файла и выйти")
	mergePtr := flag.String("merge", "", "Объединить два .fp файла: a.fp,b.fp (см. -o)")
	mergeOutPtr := flag.String("o", "merged.fp", "Файл результата для -merge")
	queryPtr := flag.String("query", "", "Показать запись каталога по id футпринта (требует -store)")
	listPtr := flag.String("list", "", "Перечислить футпринты кадра из каталога (требует -store)")

	flag.Parse()

	if *infoPtr != "" {
		if err := runInfo(*infoPtr); err != nil {
			log.Fatalf("[-] Ошибка: %v", err)
		}
		return
	}

	if *mergePtr != "" {
		if err := runMerge(*mergePtr, *mergeOutPtr); err != nil {
			log.Fatalf("[-] Ошибка: %v", err)
		}
		return
	}

	if *queryPtr != "" || *listPtr != "" {
		if *storePtr == "" {
			log.Fatal("[-] Ошибка: для -query и -list нужен -store")
		}
		if err := runCatalog(*storePtr, *queryPtr, *listPtr); err != nil {
			log.Fatalf("[-] Ошибка: %v", err)
		}
		return
	}

	cfg := config.Default()
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка чтения конфига: %v", err)
		}
		cfg = loaded
	}

	// Флаги командной строки перекрывают значения из конфига
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputPath = *inputPtr
		case "output":
			cfg.OutputDir = *outputPtr
		case "store":
			cfg.StorePath = *storePtr
		case "detector":
			cfg.Detector = *detectorPtr
		case "threshold":
			cfg.AbsThreshold = *thresholdPtr
		case "nsigma":
			cfg.NSigma = *nsigmaPtr
		case "min-area":
			cfg.MinArea = *minAreaPtr
		case "workers":
			cfg.Workers = *workersPtr
		case "lift":
			cfg.LiftSources = *liftPtr
		case "overlay":
			cfg.Overlay = *overlayPtr
		case "overlay-scale":
			cfg.OverlayScale = *overlayScalePtr
		case "stats":
			cfg.ShowStats = *statsPtr
		}
	})
	cfg.BuildVersion = buildVersion

	if cfg.InputPath == "" {
		latest, err := system.FindLatestImage("input/images")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите изображения в input/images/", err)
		}
		cfg.InputPath = latest
		fmt.Printf("[*] Выбран файл: %s\n", cfg.InputPath)
	}

	src, err := source.NewImageSource(cfg.InputPath)
	if err != nil {
		log.Fatalf("[-] Ошибка открытия источника: %v", err)
	}
	defer src.Close()

	det, err := analyzer.NewDetector(cfg.Detector)
	if err != nil {
		log.Fatalf("[-] Ошибка: %v", err)
	}
	if td, ok := det.(*analyzer.ThresholdDetector); ok {
		td.AbsThreshold = cfg.AbsThreshold
		td.NSigma = cfg.NSigma
		td.MinArea = cfg.MinArea
	}

	var st *store.Store
	if cfg.StorePath != "" {
		st, err = store.Open(cfg.StorePath)
		if err != nil {
			log.Fatalf("[-] Ошибка открытия каталога: %v", err)
		}
		defer st.Close()
	}

	project := engine.NewExtractProject(cfg, src, det, st)
	if err := project.Run(context.Background()); err != nil {
		log.Fatalf("[-] Ошибка: %v", err)
	}
}

// runInfo prints a decoded summary of one .fp artifact.
func runInfo(path string) error {
	f, err := codec.ReadFile(path)
	if err != nil {
		return err
	}

	bbox := f.BBox()
	fmt.Printf("id:     %s\n", f.ID)
	fmt.Printf("spans:  %d\n", len(f.Spans()))
	fmt.Printf("area:   %d\n", f.Area())
	if bbox.Empty() {
		fmt.Printf("bbox:   (empty)\n")
	} else {
		fmt.Printf("bbox:   (%d, %d)..(%d, %d)\n", bbox.X0, bbox.Y0, bbox.X1, bbox.Y1)
	}
	fmt.Printf("peaks:  %d\n", len(f.Peaks()))
	for _, p := range f.Peaks() {
		fmt.Printf("  (%d, %d) = %g\n", p.X, p.Y, p.Value)
	}
	fmt.Printf("heavy:  %v\n", f.IsHeavy())
	return nil
}

// runCatalog serves the -query and -list modes against an existing catalog.
func runCatalog(storePath, id, source string) error {
	st, err := store.Open(storePath)
	if err != nil {
		return err
	}
	defer st.Close()

	if id != "" {
		rec, err := st.Get(id)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("футпринт %s не найден в каталоге", id)
		}
		printRecord(rec)
		return nil
	}

	recs, err := st.BySource(source)
	if err != nil {
		return err
	}
	total, err := st.Count()
	if err != nil {
		return err
	}
	fmt.Printf("[*] Кадр %s: %d футпринтов (всего в каталоге: %d)\n", source, len(recs), total)
	for _, rec := range recs {
		fmt.Printf("  %s  area=%-6d bbox=(%d, %d)..(%d, %d)  peaks=%d  heavy=%v\n",
			rec.ID, rec.Area, rec.MinX, rec.MinY, rec.MaxX, rec.MaxY, rec.PeakCount, rec.Heavy)
	}
	return nil
}

func printRecord(rec *store.Record) {
	fmt.Printf("id:     %s\n", rec.ID)
	fmt.Printf("source: %s\n", rec.Source)
	fmt.Printf("area:   %d\n", rec.Area)
	fmt.Printf("bbox:   (%d, %d)..(%d, %d)\n", rec.MinX, rec.MinY, rec.MaxX, rec.MaxY)
	fmt.Printf("peaks:  %d\n", rec.PeakCount)
	fmt.Printf("heavy:  %v\n", rec.Heavy)
	fmt.Printf("stored: %s\n", time.Unix(0, rec.StoredUnixNano).Format("2006-01-02 15:04:05"))
	fmt.Printf("blob:   %d байт\n", len(rec.Blob))
}

// runMerge merges two heavy footprint artifacts into one.
func runMerge(pair, outPath string) error {
	parts := strings.Split(pair, ",")
	if len(parts) != 2 {
		return fmt.Errorf("ожидается -merge a.fp,b.fp, получено %q", pair)
	}

	a, err := codec.ReadFile(strings.TrimSpace(parts[0]))
	if err != nil {
		return err
	}
	b, err := codec.ReadFile(strings.TrimSpace(parts[1]))
	if err != nil {
		return err
	}
	a.Normalize()
	b.Normalize()

	merged, err := footprint.MergeHeavy(a, b)
	if err != nil {
		return err
	}
	if err := codec.WriteFile(outPath, merged); err != nil {
		return err
	}
	fmt.Printf("[+++] Успех! Объединённый футпринт: %s (площадь %d)\n", outPath, merged.Area())
	return nil
}
