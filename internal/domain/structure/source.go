package structure

// Package structure classifies structure-file URLs by chemical file format,
// content category, and compression state. It is pure and free of
// transport/viewer concerns.

import "strings"

// Format identifies a chemical file format understood by the viewer engine.
type Format string

const (
	FormatCube Format = "cube"
	FormatDX   Format = "dx"
	FormatSDF  Format = "sdf"
	FormatMol  Format = "mol"
	FormatMol2 Format = "mol2"
	FormatPDB  Format = "pdb"
	FormatCIF  Format = "cif"
	FormatXYZ  Format = "xyz"
)

// Kind distinguishes discrete molecular models from volumetric scalar fields.
type Kind string

const (
	KindModel  Kind = "model"
	KindVolume Kind = "volume"
)

// Source describes how a structure-file URL should be loaded. It is derived
// state, recomputed on every resolution request and never persisted.
type Source struct {
	Format     Format
	Kind       Kind
	Compressed bool
}

// Detect classifies a structure-file URL. Query parameters are ignored,
// matching is case-insensitive, and a trailing .gz marks the source as
// compressed before extension matching. Detect never fails: anything it
// cannot place resolves to an uncompressed SDF model.
func Detect(url string) Source {
	clean, _, _ := strings.Cut(url, "?")
	clean = strings.ToLower(clean)

	compressed := strings.HasSuffix(clean, ".gz")
	base := strings.TrimSuffix(clean, ".gz")

	switch {
	case strings.HasSuffix(base, ".cube"):
		return Source{Format: FormatCube, Kind: KindVolume, Compressed: compressed}
	case strings.HasSuffix(base, ".dx"):
		return Source{Format: FormatDX, Kind: KindVolume, Compressed: compressed}
	case strings.HasSuffix(base, ".sdf"):
		return Source{Format: FormatSDF, Kind: KindModel, Compressed: compressed}
	case strings.HasSuffix(base, ".mol2"):
		return Source{Format: FormatMol2, Kind: KindModel, Compressed: compressed}
	case strings.HasSuffix(base, ".mol"):
		return Source{Format: FormatMol, Kind: KindModel, Compressed: compressed}
	case strings.HasSuffix(base, ".pdb"):
		return Source{Format: FormatPDB, Kind: KindModel, Compressed: compressed}
	case strings.HasSuffix(base, ".cif"), strings.HasSuffix(base, ".mmcif"):
		return Source{Format: FormatCIF, Kind: KindModel, Compressed: compressed}
	case strings.HasSuffix(base, ".xyz"):
		return Source{Format: FormatXYZ, Kind: KindModel, Compressed: compressed}
	default:
		// Unrecognized extension: keep the compression flag, guess SDF.
		return Source{Format: FormatSDF, Kind: KindModel, Compressed: compressed}
	}
}
