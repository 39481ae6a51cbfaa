package sanitize

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"cbzpress/internal/imaging"
	"cbzpress/internal/logging"
	"cbzpress/internal/services"
	"cbzpress/internal/textutil"
)

type rename struct {
	from, to string
}

// repairPadding zero-pads bare numeric page names so lexical order matches
// numeric order. It only runs when some page has a numeric stem shorter than
// the width implied by the page count, and then requires every page to be
// named <digits>.<ext>.
func (s *Sanitizer) repairPadding(root string, report *Report) error {
	contents, err := s.list(root)
	if err != nil {
		return services.Wrap(services.ErrSanitization, stage, "list root", root, err)
	}
	var pages []string
	for _, file := range contents.files {
		if imaging.IsSupported(filepath.Base(file)) {
			pages = append(pages, file)
		}
	}
	width := textutil.PaddingWidth(len(pages))
	if !needsPadding(pages, width) {
		return nil
	}
	logging.WarnWithContext(s.logger, "page names lack zero padding", "sanitize_padding",
		logging.Int("pages", len(pages)),
		logging.Int("width", width),
		logging.String(logging.FieldErrorHint, "unpadded names sort out of order in most readers"),
		logging.String(logging.FieldImpact, "pages will be renamed"),
	)

	plan, err := planPadding(pages, width)
	if err != nil {
		return err
	}
	for _, r := range plan {
		if exists, _ := afero.Exists(s.fs, r.to); exists {
			return services.Wrap(services.ErrSanitization, stage, "pad page name",
				fmt.Sprintf("%s already exists", filepath.Base(r.to)), nil)
		}
		if err := s.fs.Rename(r.from, r.to); err != nil {
			return services.Wrap(services.ErrSanitization, stage, "pad page name", filepath.Base(r.from), err)
		}
		report.Renamed++
	}
	return nil
}

func needsPadding(pages []string, width int) bool {
	for _, page := range pages {
		stem, _ := textutil.SplitName(filepath.Base(page))
		if textutil.IsDigits(stem) && len(stem) < width {
			return true
		}
	}
	return false
}

// planPadding validates every page name before anything is renamed.
func planPadding(pages []string, width int) ([]rename, error) {
	var plan []rename
	targets := make(map[string]string, len(pages))
	for _, page := range pages {
		name := filepath.Base(page)
		if strings.Count(name, ".") != 1 {
			return nil, services.Wrap(services.ErrSanitization, stage, "pad page name",
				fmt.Sprintf("%s: expected <number>.<ext>", name), nil)
		}
		stem, ext := textutil.SplitName(name)
		if !textutil.IsDigits(stem) {
			return nil, services.Wrap(services.ErrSanitization, stage, "pad page name",
				fmt.Sprintf("%s: name is not numeric", name), nil)
		}
		padded := textutil.ZeroPad(stem, width) + "." + ext
		if prev, ok := targets[padded]; ok {
			return nil, services.Wrap(services.ErrSanitization, stage, "pad page name",
				fmt.Sprintf("%s and %s both pad to %s", prev, name, padded), nil)
		}
		targets[padded] = name
		if padded != name {
			plan = append(plan, rename{from: page, to: filepath.Join(filepath.Dir(page), padded)})
		}
	}
	return plan, nil
}
