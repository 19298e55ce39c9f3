package devfiles

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/mcuforge/internal/ctxlog"
	"github.com/vk/mcuforge/internal/fsutil"
	"github.com/vk/mcuforge/internal/layout"
)

// CopyVendorFiles copies the third-party device-description assets into the
// install tree. Today that is the CMSIS core headers, which device code and
// the generated register headers include.
func CopyVendorFiles(ctx context.Context, lay layout.Layout) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	srcDir := filepath.Join(lay.SourceDir("cmsis"), "CMSIS", "Core", "Include")
	if !fsutil.Exists(srcDir) {
		return nil, fmt.Errorf("CMSIS include directory %s not found; run acquire-sources first", srcDir)
	}

	dstDir := lay.VendorIncludeDir()
	copied, err := fsutil.CopyTree(srcDir, dstDir)
	if err != nil {
		return nil, err
	}

	logger.Info("Vendor device files copied.", "files", copied, "dest", dstDir)
	return []string{fmt.Sprintf("cmsis headers: %d files -> %s", copied, dstDir)}, nil
}
