// Package pipeline implements the conversion driver of spec §4.8,
// component C16: walk the source tree, match each file to a detector by
// extension, run the cross-cutting transforms (rename mapping, split-stereo
// combine, crossfade injection), then hand each resulting instrument to the
// destination codec's emitter. Sample-rate recalibration is not one of
// these transforms; it happens only inside emitters that rewrite their
// samples through wav.Rewrite. It is the
// one place that threads the two external-collaborator interfaces
// (internal/notifier.Notifier/Cancellation/Settings) through every step,
// the same role the teacher's command dispatch loop plays for its own
// subcommands.
package pipeline

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/model"
	"github.com/git-moss/ConvertWithMoss-sub005/internal/notifier"
)

// Detector reads one source file into zero or more instruments. Returning
// (nil, nil) means "this detector declines the file" (spec §4.8 step 2);
// a non-nil error is a per-file fatal parse failure.
type Detector func(path string) ([]*model.MultiSampleSource, error)

// Emitter writes one instrument under destDir, returning every file path
// it produced (for the unique-filename bookkeeping across a whole run).
type Emitter func(src *model.MultiSampleSource, destDir string) ([]string, error)

// Options configures one conversion run.
type Options struct {
	SourceDir, DestDir string
	AnalyzeOnly        bool // spec §6 --analyze: parse only, no writes
	CreateFolderStructure bool
	AddNewFilesOnly       bool // spec §6 --add-new-files: skip outputs already present
	RenameMapPath         string

	// Detectors maps a lowercased extension (with leading dot) to the
	// detector that owns it; the driver tries only the one matching a
	// given file's extension (spec §4.8 step 2: "matches extensions to
	// detectors").
	Detectors map[string]Detector
	Emit      Emitter

	// EmitExt is the destination format's primary output extension (e.g.
	// ".sfz", ".xpm"), used only to resolve (n)-suffix collisions against
	// the instrument name before Emit is called (spec §8 property 7). An
	// empty value disables the rename (collisions fall back to whatever
	// Emit itself does with a duplicate name).
	EmitExt string
}

// Driver runs one or more conversions, threading cancellation/progress
// through every step.
type Driver struct {
	Notify notifier.Notifier
	Cancel notifier.Cancellation
}

// New returns a Driver; a nil Notify/Cancel defaults to the no-op
// implementations so a caller can omit either collaborator in tests.
func New(notify notifier.Notifier, cancel notifier.Cancellation) *Driver {
	if notify == nil {
		notify = notifier.NoopNotifier{}
	}
	if cancel == nil {
		cancel = notifier.NeverCancelled{}
	}
	return &Driver{Notify: notify, Cancel: cancel}
}

// Run executes one conversion (spec §4.8 steps 1-5).
func (d *Driver) Run(opts Options) error {
	renameMap := map[string]string{}
	if opts.RenameMapPath != "" {
		m, err := ParseRenameMap(opts.RenameMapPath)
		if err != nil {
			return err
		}
		renameMap = m
	}

	written := map[string]bool{}
	var files []string
	err := filepath.Walk(opts.SourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return cwmerr.New(cwmerr.KindIO, "IDS_PIPELINE_WALK", opts.SourceDir, err)
	}

	for _, path := range files {
		if d.Cancel.Cancelled() {
			d.Notify.Log("IDS_PIPELINE_CANCELLED")
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		det, ok := opts.Detectors[ext]
		if !ok {
			continue
		}
		sources, err := det(path)
		if err != nil {
			d.Notify.Error("IDS_PIPELINE_DETECT_FAILED", path, err)
			continue
		}
		if sources == nil {
			continue
		}
		for _, src := range sources {
			ApplyRenameMap(src, renameMap)
			src.PruneEmptyGroups()
			CombineSplitStereo(src, d.Notify)
			InjectCrossfades(src)
			d.Notify.Tick()
		}
		if opts.AnalyzeOnly {
			continue
		}
		destDir := opts.DestDir
		if opts.CreateFolderStructure {
			rel, relErr := filepath.Rel(opts.SourceDir, filepath.Dir(path))
			if relErr == nil {
				destDir = filepath.Join(opts.DestDir, rel)
			}
		}
		for _, src := range sources {
			if d.Cancel.Cancelled() {
				d.Notify.Log("IDS_PIPELINE_CANCELLED")
				return nil
			}
			if opts.AddNewFilesOnly && instrumentAlreadyWritten(destDir, src.Name+opts.EmitExt) {
				continue
			}
			if opts.EmitExt != "" {
				candidate := src.Name + opts.EmitExt
				unique := UniqueFilename(destDir, candidate, written)
				src.Name = strings.TrimSuffix(unique, opts.EmitExt)
			}
			paths, err := opts.Emit(src, destDir)
			if err != nil {
				d.Notify.Error("IDS_PIPELINE_EMIT_FAILED", path, err)
				continue
			}
			for _, p := range paths {
				written[p] = true
			}
		}
	}
	return nil
}

func instrumentAlreadyWritten(destDir, name string) bool {
	_, err := os.Stat(filepath.Join(destDir, name))
	return err == nil
}

// ParseRenameMap reads a UTF-8 mapping file (spec §6): one `old,new` or
// `old;new` pair per line, delimiter is the first `,` or `;` found; blank
// lines and lines starting with `#` are ignored.
func ParseRenameMap(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cwmerr.New(cwmerr.KindIO, "IDS_PIPELINE_RENAME_MAP", path, err)
	}
	defer f.Close()

	out := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexAny(line, ",;")
		if idx < 0 {
			continue
		}
		old := strings.TrimSpace(line[:idx])
		newName := strings.TrimSpace(line[idx+1:])
		if old != "" {
			out[old] = newName
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, cwmerr.New(cwmerr.KindIO, "IDS_PIPELINE_RENAME_MAP", path, err)
	}
	return out, nil
}

// ApplyRenameMap renames src in place if its name has a mapping entry.
func ApplyRenameMap(src *model.MultiSampleSource, renameMap map[string]string) {
	if newName, ok := renameMap[src.Name]; ok {
		src.Name = newName
	}
}

// UniqueFilename returns name adjusted to not collide with anything in
// used, appending "(n)" before the extension for the first n that's free
// (spec §8 property 7: "the newer file gets a (n) suffix").
func UniqueFilename(dir, name string, used map[string]bool) string {
	candidate := filepath.Join(dir, name)
	if !used[candidate] {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return name
		}
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		alt := base + "(" + strconv.Itoa(n) + ")" + ext
		candidate = filepath.Join(dir, alt)
		if used[candidate] {
			continue
		}
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return alt
		}
	}
}
