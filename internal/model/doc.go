// Package model defines the core data structures used throughout
// the album-dl application.
//
// # Album jobs
//
// AlbumJob is the root unit of work. It is built once per invocation from a
// listing page and holds the album title, the album output directory and the
// ordered item references:
//
//	job := model.NewAlbumJob("Some Album", "./downloads", refs)
//	fmt.Println(job.Path) // ./downloads/Some Album
//
// # Items
//
// ItemReference points at one entry of the listing. Item is the parsed
// metadata document of that entry; Item.OutputName applies the naming policy:
//
//	item.OutputName(model.NamingTrack) // "42_Song.m4a"
//
// # Results
//
// ItemResult is the outcome of one item, RunResult the aggregate of a run.
//
// # Errors
//
// FetchError, ParseError, TransferError and ConversionError classify item
// failures and can be matched with errors.As.
package model
