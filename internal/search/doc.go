// Package search integrates Serper.dev news search and source-page text
// extraction for the research stages of the pipeline.
package search
