// Package merge implements the chunked fuzzy join.
//
// A Joiner splits the left dataset into chunks of ChunkSize rows. For each
// chunk it renders the chunk and the whole right dataset as
// "<index>: <key text>" blocks, asks an ai.Matcher which rows correspond, checks
// every returned index against the chunk and the right dataset, and builds
// one merged record per returned entry:
//
//	match/<extra fields> | left fields | right fields
//
// Output records are concatenated in chunk order and re-indexed from 0.
// Data fields that would appear twice are qualified with their source
// label, so ("Name") becomes ("left", "Name") and ("right", "Name").
//
//	joiner, err := merge.NewJoiner(provider.Matcher(), merge.WithChunkSize(20))
//	if err != nil {
//	    return err
//	}
//	defer joiner.Release()
//
//	merged, err := joiner.Join(ctx, rewe, fdc,
//	    core.NF("Non Nutrient Data", "Name"),
//	    core.NF("Non Nutrient Data", "FDC Name"))
package merge
