// Package chat runs one conversational turn against a session.
//
// A turn is a fixed three-stage pipeline:
//
//	Input -> Retrieve -> Answer
//
// Input trims and validates the question and starts the turn on the
// session record. Retrieve searches the knowledge base, builds a bounded
// context string, and asks the model for an answer together with the
// updated conversation memory. Answer marks the turn complete. Each stage
// appends its name to the session trace only when it succeeds.
//
// The retrieval and model backends are collaborators behind the
// DocumentRetriever and ConversationModel interfaces; concrete clients
// live under internal/providers.
//
// Example Usage:
//
//	orch := chat.NewOrchestrator(store, retriever, model, chat.DefaultConfig(),
//	    chat.WithLogger(logger),
//	)
//	res, err := orch.Run(ctx, sessionID, "When is the next meetup?")
//	if errors.Is(err, chat.ErrValidation) {
//	    // reject the request
//	}
//	// res.Answer is always safe to show, even when err != nil
package chat
