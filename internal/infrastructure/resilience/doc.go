/*
Package resilience guards calls to external collaborators with a circuit
breaker.

The chat orchestrator wraps every retrieval and model call in a Breaker so
that a dead vector search service or LLM endpoint fails fast instead of
tying up request handlers for the full client timeout.

# States

	Closed --[trip]-> Open --[cooldown]-> Half-Open --[trials succeed]-> Closed
	                                          |
	                                      [failure]
	                                          v
	                                        Open

# Usage

	breaker := resilience.New("retriever", resilience.Settings{
		Cooldown: 30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

	err := breaker.Execute(ctx, func(ctx context.Context) error {
		docs, err = retriever.Search(ctx, query, k)
		return err
	})

A call abandoned by its caller (context.Canceled) is not counted against
the collaborator.
*/
package resilience
