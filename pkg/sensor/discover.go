package sensor

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultEDACRoot is where the kernel exposes one directory per memory controller.
const DefaultEDACRoot = "/sys/devices/system/edac/mc"

// Controller locates the counters of one EDAC memory controller.
type Controller struct {
	Name        string
	UECountPath string
	CECountPath string
}

// DiscoverControllers lists the mc* directories under root that expose a ue_count file.
// A missing root is not an error; the platform simply has no EDAC driver loaded.
func DiscoverControllers(root string) ([]Controller, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var controllers []Controller
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "mc") {
			continue
		}
		dir := filepath.Join(root, name)
		ue := filepath.Join(dir, "ue_count")
		if _, err := os.Stat(ue); err != nil {
			continue
		}
		controllers = append(controllers, Controller{
			Name:        name,
			UECountPath: ue,
			CECountPath: filepath.Join(dir, "ce_count"),
		})
	}

	sort.Slice(controllers, func(i, j int) bool {
		return controllers[i].Name < controllers[j].Name
	})
	return controllers, nil
}
