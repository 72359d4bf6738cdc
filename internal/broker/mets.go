package broker

import (
	"encoding/xml"
	"fmt"
	"os"
)

// metsDocument is the slice of a METS file the broker cares about: the file
// section's group listing. Namespace prefixes are matched by local name.
type metsDocument struct {
	FileSec struct {
		FileGrps []struct {
			Use string `xml:"USE,attr"`
		} `xml:"fileGrp"`
	} `xml:"fileSec"`
}

// ExtractFileGroups re-derives the ordered file group listing of a workspace
// by reading its METS metadata.
func ExtractFileGroups(metsPath string) ([]string, error) {
	data, err := os.ReadFile(metsPath) // #nosec G304 -- path comes from a store record
	if err != nil {
		return nil, fmt.Errorf("failed to read mets file %s: %w", metsPath, err)
	}
	var document metsDocument
	if err := xml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("failed to parse mets file %s: %w", metsPath, err)
	}

	groups := make([]string, 0, len(document.FileSec.FileGrps))
	for _, grp := range document.FileSec.FileGrps {
		if grp.Use == "" {
			continue
		}
		groups = append(groups, grp.Use)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("mets file %s lists no file groups", metsPath)
	}
	return groups, nil
}
