package resume

import (
	"github.com/nbirkbak/journalist/internal/dataset"
	"github.com/nbirkbak/journalist/internal/pathid"
)

// Coverage re-reads a just-written dataset and reports which inputs it
// covers. A non-empty missing list is an expected, observable outcome after
// a crash-aborted run, never a hard failure.
func Coverage(datasetPath string, inputRefs []string, root string) (covered int, missing []string, err error) {
	info, err := dataset.Load(datasetPath, "")
	if err != nil {
		return 0, nil, err
	}
	raw := make([]string, 0, len(info.Identities))
	for id := range info.Identities {
		raw = append(raw, id)
	}
	set, err := pathid.BuildIdentitySet(raw, root)
	if err != nil {
		return 0, nil, err
	}
	for _, ref := range inputRefs {
		ids, err := pathid.IdentityIDs(ref, root)
		if err != nil {
			return 0, nil, err
		}
		found := false
		for _, id := range ids {
			if _, ok := set[id]; ok {
				found = true
				break
			}
		}
		if found {
			covered++
		} else {
			missing = append(missing, ref)
		}
	}
	return covered, missing, nil
}
