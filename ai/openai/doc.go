// Package openai implements the ai services on top of langchaingo's
// OpenAI client, which also speaks to Ollama and other compatible servers.
//
// Match renders a chat prompt from the two row blocks and requests a
// {"items": [...]} object, either as a function call (ai.MatchModeTools)
// or as a JSON-mode reply (ai.MatchModeJSON). Malformed JSON is repaired
// when possible and each item is checked against the configured
// core.MatchSchema before it is returned.
//
//	provider, err := openai.NewProvider(ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"),
//	    ai.WithChatModel("qwen2.5:7b"),
//	))
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
//	matches, err := provider.Matcher().Match(ctx, "0: Vollmilch 3,5%", "0: Milk, whole\n1: Butter")
package openai
