// Package llmerge joins two tabular datasets whose keys do not match
// exactly by asking a chat model which rows describe the same item.
//
// The left dataset is split into chunks; every chunk is sent to the model
// together with the keys of the whole right dataset, and the model's
// answer is validated and assembled into merged rows. See package merge
// for the join itself and package ai/openai for the model client.
//
// A Session wires everything from a config.Job:
//
//	job, err := config.Load("job.yaml")
//	if err != nil {
//	    return err
//	}
//	s, err := llmerge.NewSession(job)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	merged, err := s.MergeFiles(ctx)
//
// Sessions also build and query document indexes (see package docsearch)
// that give a model retrieval context.
package llmerge
