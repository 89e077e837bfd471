// Package docsearch provides embedding retrieval over PDF pages and
// dataset rows.
//
// Documents are loaded with LoadPDF or DocumentsFromDataset, embedded in
// batches by an ai.Embedder and stored in a storage.DocumentRepository
// collection. Store implements the langchaingo vectorstores.VectorStore
// interface, so an Index can hand out standard retrievers:
//
//	store, err := docsearch.NewStore(repo, provider.Embedder(), "nutrition_papers")
//	if err != nil {
//	    return err
//	}
//	index, err := docsearch.CreateOrLoad(ctx, store, func(ctx context.Context) ([]schema.Document, error) {
//	    return docsearch.LoadPDF(ctx, "papers/fdc.pdf", docsearch.SplitOptions{})
//	})
//	if err != nil {
//	    return err
//	}
//	docs, err := index.Retriever(4).GetRelevantDocuments(ctx, "energy content of whole milk")
//
// An existing collection is reused as is: CreateOrLoad neither loads nor
// embeds anything when the collection is already present.
package docsearch
