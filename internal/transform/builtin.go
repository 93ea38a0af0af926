package transform

import (
	"github.com/inodb/vibe-vcf/internal/vcf"
)

type dropInfo struct {
	keys []string
}

// DropInfo removes INFO keys from the header and from every record.
func DropInfo(keys ...string) Transformation {
	return dropInfo{keys: keys}
}

func (d dropInfo) TransformMetadata(md *vcf.Metadata) error {
	for _, k := range d.keys {
		md.Remove(vcf.MetaInfo, k)
	}
	return nil
}

func (d dropInfo) TransformRecord(_ *vcf.Metadata, v *vcf.Variant, _ []*vcf.Sample) (bool, error) {
	if v.Info == nil {
		return true, nil
	}
	for _, k := range d.keys {
		v.Info.Remove(k)
	}
	return true, nil
}

type keepPassing struct{}

// KeepPassing drops records that failed a filter.
func KeepPassing() Transformation { return keepPassing{} }

func (keepPassing) TransformMetadata(*vcf.Metadata) error { return nil }

func (keepPassing) TransformRecord(_ *vcf.Metadata, v *vcf.Variant, _ []*vcf.Sample) (bool, error) {
	return v.IsPassingAllFilters(), nil
}

type rsidsOnly struct{}

// RSIDsOnlyFilter drops records without an rs ID.
func RSIDsOnlyFilter() Transformation { return rsidsOnly{} }

func (rsidsOnly) TransformMetadata(*vcf.Metadata) error { return nil }

func (rsidsOnly) TransformRecord(_ *vcf.Metadata, v *vcf.Variant, _ []*vcf.Sample) (bool, error) {
	return v.HasRSID(), nil
}

type addRaw struct {
	key, value string
}

// AddRaw adds a ##key=value line to the header. Records pass through.
func AddRaw(key, value string) Transformation {
	return addRaw{key: key, value: value}
}

func (a addRaw) TransformMetadata(md *vcf.Metadata) error {
	return md.AddRaw(a.key, a.value)
}

func (addRaw) TransformRecord(*vcf.Metadata, *vcf.Variant, []*vcf.Sample) (bool, error) {
	return true, nil
}

// Identity passes the header and every record through unchanged.
func Identity() Transformation { return identity{} }

type identity struct{}

func (identity) TransformMetadata(*vcf.Metadata) error { return nil }

func (identity) TransformRecord(*vcf.Metadata, *vcf.Variant, []*vcf.Sample) (bool, error) {
	return true, nil
}

type chain []Transformation

// Chain applies ts in order as one transformation. A record dropped by one
// of them is not passed to the rest.
func Chain(ts ...Transformation) Transformation {
	if len(ts) == 1 {
		return ts[0]
	}
	return chain(ts)
}

func (c chain) TransformMetadata(md *vcf.Metadata) error {
	for _, t := range c {
		if err := t.TransformMetadata(md); err != nil {
			return err
		}
	}
	return nil
}

func (c chain) TransformRecord(md *vcf.Metadata, v *vcf.Variant, samples []*vcf.Sample) (bool, error) {
	for _, t := range c {
		keep, err := t.TransformRecord(md, v, samples)
		if err != nil || !keep {
			return false, err
		}
	}
	return true, nil
}
