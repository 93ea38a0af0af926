package vcf

// ReservedInfo is an INFO key defined by the VCF specification itself.
type ReservedInfo int

// Reserved INFO keys.
const (
	InfoAncestralAllele ReservedInfo = iota
	InfoAlleleCount
	InfoAlleleFrequency
	InfoAlleleNumber
	InfoBaseQuality
	InfoCigar
	InfoDbsnp
	InfoDepth
	InfoHapmap2
	InfoHapmap3
	InfoMappingQuality
	InfoMappingQualityZeroCount
	InfoNumberOfSamples
	InfoStrandBias
	InfoSomatic
	InfoValidated
	InfoThousandGenomes
	InfoImprecise
	InfoNovel
	InfoEnd
	InfoSVType
	InfoSVLength
	InfoCIPos
	InfoCIEnd
	InfoHomologyLength
	InfoHomologySequence
	InfoBreakpointID
	InfoMobileElementInfo
	InfoMobileElementTransduction
	InfoDgvID
	InfoDbvarID
	InfoDbripID
	InfoMateID
	InfoPartnerID
	InfoEventID
	InfoCILength
	InfoReadDepthOfAdjacency
	InfoCopyNumber
	InfoCopyNumberOfAdjacency
	InfoCICopyNumber
	InfoCICopyNumberOfAdjacency

	numReservedInfo
)

// ReservedFormat is a FORMAT key defined by the VCF specification itself.
type ReservedFormat int

// Reserved FORMAT keys.
const (
	FormatGenotype ReservedFormat = iota
	FormatDepth
	FormatFilter
	FormatGenotypeLikelihoods
	FormatGenotypeLikelihoodsHeterogeneousPloidy
	FormatPhredGenotypeLikelihoods
	FormatGenotypePosteriors
	FormatGenotypeQuality
	FormatHaplotypeQualities
	FormatPhaseSet
	FormatPhasingQuality
	FormatExpectedAlleleCounts
	FormatMappingQuality

	numReservedFormat
)

// ReservedProperty describes a reserved INFO or FORMAT key.
type ReservedProperty struct {
	ID          string
	Description string
	Type        FieldType
	IsList      bool
	Number      Number
}

func fixed(n int) Number { return Number{Kind: NumberFixed, Count: n} }

var (
	perAlt      = Number{Kind: NumberPerAlt}
	perGenotype = Number{Kind: NumberPerGenotype}
	unbounded   = Number{Kind: NumberUnknown}
)

var reservedInfo = [numReservedInfo]ReservedProperty{
	InfoAncestralAllele:           {"AA", "Ancestral allele", TypeString, false, fixed(1)},
	InfoAlleleCount:               {"AC", "Allele count in genotypes, for each ALT allele, in the same order as listed", TypeInteger, true, perAlt},
	InfoAlleleFrequency:           {"AF", "Allele frequency for each ALT allele in the same order as listed", TypeFloat, true, perAlt},
	InfoAlleleNumber:              {"AN", "Total number of alleles in called genotypes", TypeInteger, false, fixed(1)},
	InfoBaseQuality:               {"BQ", "RMS base quality at this position", TypeFloat, false, fixed(1)},
	InfoCigar:                     {"CIGAR", "Cigar string describing how to align an alternate allele to the reference allele", TypeString, false, fixed(1)},
	InfoDbsnp:                     {"DB", "dbSNP membership", TypeFlag, false, fixed(0)},
	InfoDepth:                     {"DP", "Combined depth across samples", TypeFloat, false, fixed(1)},
	InfoHapmap2:                   {"H2", "Membership in HapMap2", TypeFlag, false, fixed(0)},
	InfoHapmap3:                   {"H3", "Membership in HapMap3", TypeFlag, false, fixed(0)},
	InfoMappingQuality:            {"MQ", "RMS mapping quality", TypeFloat, false, fixed(1)},
	InfoMappingQualityZeroCount:   {"MQ0", "Number of MAPQ == 0 reads covering this record", TypeInteger, false, fixed(1)},
	InfoNumberOfSamples:           {"NS", "Number of samples with data", TypeInteger, false, fixed(1)},
	InfoStrandBias:                {"SB", "Strand bias at this position", TypeInteger, true, unbounded},
	InfoSomatic:                   {"SOMATIC", "Indicates that the record is a somatic mutation", TypeFlag, false, fixed(0)},
	InfoValidated:                 {"VALIDATED", "Validated by follow-up experiment", TypeFlag, false, fixed(0)},
	InfoThousandGenomes:           {"1000G", "Membership in 1000 Genomes", TypeFlag, false, fixed(0)},
	InfoImprecise:                 {"IMPRECISE", "Imprecise structural variation", TypeFlag, false, fixed(0)},
	InfoNovel:                     {"NOVEL", "Indicates a novel structural variation", TypeFlag, false, fixed(0)},
	InfoEnd:                       {"END", "End position of the variant described in this record", TypeInteger, false, fixed(1)},
	InfoSVType:                    {"SVTYPE", "Type of structural variant", TypeString, false, fixed(1)},
	InfoSVLength:                  {"SVLEN", "Difference in length between REF and ALT alleles", TypeInteger, false, unbounded},
	InfoCIPos:                     {"CIPOS", "Confidence interval around POS for imprecise variants", TypeInteger, true, fixed(2)},
	InfoCIEnd:                     {"CIEND", "Confidence interval around END for imprecise variants", TypeInteger, true, fixed(2)},
	InfoHomologyLength:            {"HOMLEN", "Length of base pair identical micro-homology at event breakpoints", TypeInteger, false, unbounded},
	InfoHomologySequence:          {"HOMSEQ", "Sequence of base pair identical micro-homology at event breakpoints", TypeString, false, unbounded},
	InfoBreakpointID:              {"BKPTID", "ID of the assembled alternate allele in the assembly file", TypeString, false, unbounded},
	InfoMobileElementInfo:         {"MEINFO", "Mobile element info of the form NAME,START,END,POLARITY", TypeString, true, fixed(4)},
	InfoMobileElementTransduction: {"METRANS", "Mobile element transduction info of the form CHR,START,END,POLARITY", TypeString, true, fixed(4)},
	InfoDgvID:                     {"DGVID", "ID of this element in Database of Genomic Variation", TypeString, false, fixed(1)},
	InfoDbvarID:                   {"DBVARID", "ID of this element in DBVAR", TypeString, false, fixed(1)},
	InfoDbripID:                   {"DBRIPID", "ID of this element in DBRIP", TypeString, false, fixed(1)},
	InfoMateID:                    {"MATEID", "ID of mate breakends", TypeString, false, unbounded},
	InfoPartnerID:                 {"PARID", "ID of partner breakend", TypeString, false, fixed(1)},
	InfoEventID:                   {"EVENT", "ID of event associated to breakend", TypeString, false, fixed(1)},
	InfoCILength:                  {"CILEN", "Confidence interval around the inserted material between breakends", TypeInteger, true, fixed(2)},
	InfoReadDepthOfAdjacency:      {"DPADJ", "Read Depth of adjacency", TypeInteger, true, unbounded},
	InfoCopyNumber:                {"CN", "Copy number of segment containing breakend", TypeInteger, false, fixed(1)},
	InfoCopyNumberOfAdjacency:     {"CNADJ", "Copy number of adjacency", TypeInteger, true, unbounded},
	InfoCICopyNumber:              {"CICN", "Confidence interval around copy number for the segment", TypeInteger, true, fixed(2)},
	InfoCICopyNumberOfAdjacency:   {"CICNADJ", "Confidence interval around copy number for the adjacency", TypeInteger, true, fixed(2)},
}

var reservedFormat = [numReservedFormat]ReservedProperty{
	FormatGenotype:                               {"GT", "Genotype, encoded as allele values separated by either / or |", TypeString, false, fixed(1)},
	FormatDepth:                                  {"DP", "Read depth at this position for this sample", TypeInteger, false, fixed(1)},
	FormatFilter:                                 {"FT", "Sample genotype filter indicating if this genotype was called", TypeString, false, fixed(1)},
	FormatGenotypeLikelihoods:                    {"GL", "Genotype likelihoods", TypeFloat, true, perGenotype},
	FormatGenotypeLikelihoodsHeterogeneousPloidy: {"GLE", "Genotype likelihoods of heterogeneous ploidy", TypeString, true, unbounded},
	FormatPhredGenotypeLikelihoods:               {"PL", "Phred-scaled genotype likelihoods rounded to the closest integer", TypeInteger, true, perGenotype},
	FormatGenotypePosteriors:                     {"GP", "Phred-scaled genotype posterior probabilities", TypeFloat, true, perGenotype},
	FormatGenotypeQuality:                        {"GQ", "Conditional genotype quality, encoded as a phred quality", TypeInteger, false, fixed(1)},
	FormatHaplotypeQualities:                     {"HQ", "Haplotype qualities, two comma separated phred qualities", TypeInteger, true, fixed(2)},
	FormatPhaseSet:                               {"PS", "Phase set", TypeInteger, false, fixed(1)},
	FormatPhasingQuality:                         {"PQ", "Phasing quality", TypeInteger, false, fixed(1)},
	FormatExpectedAlleleCounts:                   {"EC", "Expected alternate allele counts for each alternate allele", TypeInteger, true, perAlt},
	FormatMappingQuality:                         {"MQ", "RMS mapping quality", TypeInteger, true, unbounded},
}

// Property returns the static description of r.
func (r ReservedInfo) Property() ReservedProperty { return reservedInfo[r] }

// ID returns the INFO key.
func (r ReservedInfo) ID() string { return reservedInfo[r].ID }

func (r ReservedInfo) String() string { return reservedInfo[r].ID }

// Convert converts a raw INFO value with r's type and cardinality.
func (r ReservedInfo) Convert(raw string) (any, error) {
	p := reservedInfo[r]
	return ConvertValue(p.Type, p.IsList, raw)
}

// LookupReservedInfo finds the reserved INFO key with the given id.
func LookupReservedInfo(id string) (ReservedInfo, bool) {
	for i := range reservedInfo {
		if reservedInfo[i].ID == id {
			return ReservedInfo(i), true
		}
	}
	return 0, false
}

// Property returns the static description of r.
func (r ReservedFormat) Property() ReservedProperty { return reservedFormat[r] }

// ID returns the FORMAT key.
func (r ReservedFormat) ID() string { return reservedFormat[r].ID }

func (r ReservedFormat) String() string { return reservedFormat[r].ID }

// Convert converts a raw sample value with r's type and cardinality.
func (r ReservedFormat) Convert(raw string) (any, error) {
	p := reservedFormat[r]
	return ConvertValue(p.Type, p.IsList, raw)
}

// LookupReservedFormat finds the reserved FORMAT key with the given id.
func LookupReservedFormat(id string) (ReservedFormat, bool) {
	for i := range reservedFormat {
		if reservedFormat[i].ID == id {
			return ReservedFormat(i), true
		}
	}
	return 0, false
}
