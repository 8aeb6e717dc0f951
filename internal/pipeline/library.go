package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"git.home.luguber.info/inful/refbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/refbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/refbuilder/internal/libspec"
	"git.home.luguber.info/inful/refbuilder/internal/logfields"
	"git.home.luguber.info/inful/refbuilder/internal/observability"
	"git.home.luguber.info/inful/refbuilder/internal/search"
	"git.home.luguber.info/inful/refbuilder/internal/sections"
	"git.home.luguber.info/inful/refbuilder/internal/sources"
	"git.home.luguber.info/inful/refbuilder/internal/typedoc"
)

// libraryState carries one library through the stages.
type libraryState struct {
	lib    config.Library
	outDir string

	tree     []sections.Section
	common   []sections.Section // flattened, unfiltered
	spec     *libspec.Spec
	types    *typedoc.Tree // nil without type documentation
	filtered []sections.Section
	flat     []sections.Section

	menu      []sections.RefMenuCategory
	reference []ReferenceEntry
	records   []search.Record

	unchanged bool
	report    LibraryReport
}

func newLibraryState(lib config.Library, outDir string) *libraryState {
	return &libraryState{
		lib:    lib,
		outDir: outDir,
		report: LibraryReport{ID: lib.ID, StageDurations: make(map[string]time.Duration)},
	}
}

// readInput reads an input file after mapping source:// paths onto fetched clones.
func (b *Builder) readInput(role, path string) ([]byte, string, error) {
	resolved, err := sources.Resolve(path, b.sourceDirs)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, resolved, ferrors.NotFoundError("input file not found").
				WithContext("role", role).WithContext("path", resolved).Build()
		}
		return nil, resolved, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read input file").
			WithContext("role", role).WithContext("path", resolved).Build()
	}
	return data, resolved, nil
}

// TypeDocPath returns the configured TypeDoc file, falling back to the definition
// named in a client library spec, relative to the spec file. spec may be nil.
func TypeDocPath(lib config.Library, spec *libspec.Spec) string {
	if lib.TypeDoc != "" || lib.Kind != libspec.KindClientLib || spec == nil || spec.Info.Definition == "" {
		return lib.TypeDoc
	}
	def := spec.Info.Definition
	if filepath.IsAbs(def) || strings.HasPrefix(def, config.SourcePrefix) {
		return def
	}
	if strings.HasPrefix(lib.Spec, config.SourcePrefix) {
		return lib.Spec[:strings.LastIndex(lib.Spec, "/")] + "/" + filepath.ToSlash(def)
	}
	return filepath.Join(filepath.Dir(lib.Spec), def)
}

func (b *Builder) stageLoadInputs(ctx context.Context, ls *libraryState) error {
	files := make(map[string][]byte, 3)

	data, path, err := b.readInput("sections", ls.lib.Sections)
	if err != nil {
		return err
	}
	files["sections"] = data
	if ls.tree, err = sections.Decode(bytes.NewReader(data)); err != nil {
		return ferrors.WrapError(err, ferrors.CategorySpec, "decode sections").WithContext("path", path).Build()
	}
	if ls.common, err = sections.Flatten(ls.tree); err != nil {
		return err
	}
	if dups := sections.DuplicateIDs(ls.tree); len(dups) > 0 {
		observability.WarnContext(ctx, "Duplicate section ids", logfields.Path(path), slog.Any("ids", dups))
	}

	data, path, err = b.readInput("spec", ls.lib.Spec)
	if err != nil {
		if ferrors.HasCategory(err, ferrors.CategoryNotFound) {
			return errors.Wrapf(libspec.ErrSpecNotFound, "%s", path)
		}
		return err
	}
	files["spec"] = data
	if ls.spec, err = libspec.Parse(ls.lib.Kind, data); err != nil {
		return ferrors.WrapError(err, ferrors.CategorySpec, "parse library spec").WithContext("path", path).Build()
	}

	if tdPath := TypeDocPath(ls.lib, ls.spec); tdPath != "" {
		data, path, err = b.readInput("typedoc", tdPath)
		switch {
		case err != nil && ls.lib.TypeDoc == "" && ferrors.HasCategory(err, ferrors.CategoryNotFound):
			observability.WarnContext(ctx, "Spec definition not found; parameters stay unresolved", logfields.Path(path))
		case err != nil:
			return err
		default:
			files["typedoc"] = data
			if ls.types, err = typedoc.Decode(bytes.NewReader(data)); err != nil {
				return ferrors.WrapError(err, ferrors.CategoryTypeDoc, "decode type documentation").
					WithContext("path", path).Build()
			}
		}
	}

	ls.report.InputHash, err = computeInputHash(ls.lib, b.searchEnabled, files)
	if err != nil {
		return err
	}
	if b.incremental && b.store != nil {
		last, ok, err := b.store.LastSuccessfulHash(ctx, ls.lib.ID)
		if err != nil {
			observability.WarnContext(ctx, "Cannot read previous input hash; rebuilding", logfields.Error(err))
			return nil
		}
		ls.unchanged = ok && last == ls.report.InputHash && b.artifactsExist(ls.outDir)
	}
	return nil
}

func (b *Builder) artifactsExist(dir string) bool {
	names := []string{MenuFileName, SectionsFileName, ReferenceFileName}
	if b.searchEnabled {
		names = append(names, search.FileName)
	}
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

func (b *Builder) stageFilterSections(_ context.Context, ls *libraryState) error {
	var err error
	if ls.filtered, err = sections.FilterExcluded(ls.tree, ls.spec.IncludeList(), ls.lib.ExcludedTarget); err != nil {
		return err
	}
	if ls.flat, err = sections.Flatten(ls.filtered); err != nil {
		return err
	}
	if ls.flat == nil {
		ls.flat = []sections.Section{}
	}
	return nil
}

func (b *Builder) stageCollectMenu(_ context.Context, ls *libraryState) error {
	ls.menu = sections.CollectCategories(ls.lib.SectionPath, ls.filtered, b.ids)
	if ls.menu == nil {
		ls.menu = []sections.RefMenuCategory{}
	}
	ls.report.MenuItems = sections.CountMenuItems(ls.menu)
	return nil
}

func (b *Builder) stageResolveRefs(ctx context.Context, ls *libraryState) error {
	var resolver *typedoc.Resolver
	if ls.types != nil {
		resolver = typedoc.NewResolver(ls.types)
	}
	ls.reference = buildReference(ls.lib.SectionPath, ls.flat, ls.spec, resolver)
	ls.report.References = len(ls.reference)
	if resolver != nil {
		diags := resolver.Diagnostics()
		ls.report.Diagnostics = len(diags)
		for _, d := range diags {
			observability.DebugContext(ctx, "Unresolved reference",
				logfields.Ref(d.Ref), slog.String("code", string(d.Code)), logfields.Error(&d))
		}
	}
	return nil
}

func (b *Builder) stageBuildSearch(_ context.Context, ls *libraryState) error {
	if !b.searchEnabled {
		return nil
	}
	lib := search.Library{
		ID:          ls.lib.ID,
		Name:        ls.lib.Name,
		Kind:        ls.lib.Kind,
		Version:     ls.lib.Version,
		SectionPath: ls.lib.SectionPath,
	}
	var err error
	if ls.records, err = search.BuildRecords(lib, ls.filtered, ls.spec); err != nil {
		return err
	}
	ls.report.Records = len(ls.records)
	return nil
}

func (b *Builder) stageWriteArtifacts(ctx context.Context, ls *libraryState) error {
	if err := search.WriteJSON(filepath.Join(ls.outDir, MenuFileName), ls.menu); err != nil {
		return err
	}
	if err := search.WriteJSON(filepath.Join(ls.outDir, SectionsFileName), ls.flat); err != nil {
		return err
	}
	if err := search.WriteJSON(filepath.Join(ls.outDir, ReferenceFileName), ls.reference); err != nil {
		return err
	}
	if b.searchEnabled {
		if err := b.sink.Publish(ctx, ls.lib.ID, ls.records); err != nil {
			return err
		}
	}
	return nil
}
