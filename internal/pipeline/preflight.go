package pipeline

import (
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/ajitpratap0/fixedseg/pkg/errors"
	"github.com/ajitpratap0/fixedseg/pkg/rowcol"
)

// checkFreeSpace fails when writing size bytes next to path would leave less
// than headroom bytes free. A mapped segment larger than available memory is
// allowed but logged, since msync then pages the whole file out under
// pressure.
func checkFreeSpace(path string, size int64, headroom uint64, backend rowcol.Backend, log *zap.Logger) error {
	dir := filepath.Dir(path)
	usage, err := disk.Usage(dir)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to stat filesystem").WithDetail("dir", dir)
	}
	need := uint64(size) + headroom
	if usage.Free < need {
		return errors.Newf(errors.ErrorTypeFile, "segment needs %d bytes with headroom, %d free", need, usage.Free).
			WithDetail("dir", dir)
	}

	if backend == rowcol.BackendMmap {
		if vm, err := mem.VirtualMemory(); err == nil && uint64(size) > vm.Available {
			log.Warn("mapped segment exceeds available memory",
				zap.Int64("size", size),
				zap.Uint64("available", vm.Available))
		}
	}
	log.Debug("free space check passed",
		zap.String("dir", dir),
		zap.Uint64("free", usage.Free),
		zap.Uint64("need", need))
	return nil
}
