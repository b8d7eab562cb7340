package report

import (
	"context"

	"github.com/VectorBits/SmartScan/src/internal/logger"
)

type Mirror interface {
	Mirror(ctx context.Context, report *AuditReport, paths []string) error
}

// Reporter 落盘后可选地同步到远端存储；同步失败只记录警告
type Reporter struct {
	storage *FileStorage
	mirror  Mirror
}

func NewReporter(storage *FileStorage, mirror Mirror) *Reporter {
	return &Reporter{
		storage: storage,
		mirror:  mirror,
	}
}

func (r *Reporter) Save(ctx context.Context, report *AuditReport, overwrite bool) ([]string, error) {
	paths, err := r.storage.ArchiveReport(report, overwrite)
	if err != nil {
		return nil, err
	}

	if r.mirror != nil {
		if err := r.mirror.Mirror(ctx, report, paths); err != nil {
			logger.Warn("⚠️  Report mirror failed (local report kept): %v", err)
		} else {
			logger.InfoFileOnly("report mirrored: %v", paths)
		}
	}
	return paths, nil
}
