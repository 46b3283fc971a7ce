package system

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

// Каждому воркеру нужен запас памяти под кадр, планы masked-изображения и
// тяжёлые футпринты. 256МБ — консервативная оценка для кадров до ~4K.
const perWorkerBytes = 256 << 20

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось получить лимит файлов: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось установить лимит файлов: %v", err)
	} else {
		fmt.Printf("[*] Системный лимит открытых файлов увеличен до %d\n", rLimit.Cur)
	}
}

// Workers picks a worker count for the extraction pipeline: the CPU count,
// clamped so that concurrent frames fit in available memory.
func Workers() int {
	n := runtime.NumCPU()

	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Printf("[!] Не удалось получить объём памяти: %v", err)
		return n
	}

	byMem := int(vm.Available / perWorkerBytes)
	if byMem < 1 {
		byMem = 1
	}
	if byMem < n {
		n = byMem
	}
	return n
}

// FindLatestImage returns the most recently modified image file in the
// directory (or in the file's directory when given a file).
func FindLatestImage(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	searchDir := path
	if !fi.IsDir() {
		searchDir = filepath.Dir(path)
	}

	files, err := os.ReadDir(searchDir)
	if err != nil {
		return "", err
	}

	extensions := []string{".jpg", ".jpeg", ".png"}
	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		isImage := false
		for _, ext := range extensions {
			if strings.HasSuffix(strings.ToLower(f.Name()), ext) {
				isImage = true
				break
			}
		}
		if isImage {
			info, err := f.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(latestTime) {
				latestTime = info.ModTime()
				latestFile = filepath.Join(searchDir, f.Name())
			}
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено изображений", searchDir)
	}

	return latestFile, nil
}
