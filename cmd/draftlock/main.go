// Draftlock prices and accounts for LLM-assisted draft rewriting.
//
// It keeps a versioned pricing catalog, a persistent usage ledger of every
// transformation and a debounced live estimate of what the next run will cost.
//
// Usage:
//
//	# Start the HTTP API
//	draftlock serve
//
//	# Show the rate and cost for a model
//	draftlock price gpt-4o-2024-08-06 --input 1200 --output 300
//
//	# Estimate the cost of a draft without running it
//	echo "meeting notes" | draftlock estimate --model gpt-4o-mini --mode doc
//
//	# Show or reset accumulated usage
//	draftlock usage
//	draftlock usage reset --yes
package main

func main() {
	Execute()
}
