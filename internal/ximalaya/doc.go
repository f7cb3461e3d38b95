// Package ximalaya parses Ximalaya album listing pages and per-track
// metadata documents.
//
// The package handles two documents:
//
//  1. The album listing page, which yields the album title and one item
//     reference per track
//  2. The track metadata JSON, which yields the playable media URL and the
//     output file name
//
// # Listing Parsing
//
//	parser := ximalaya.NewListingParser(ximalaya.DefaultTrackURLFormat)
//	listing, err := parser.Parse(file, "https://www.ximalaya.com/album/123")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Album: %s (%d tracks)\n", listing.Title, len(listing.Items))
//
// # Track Parsing
//
//	item, err := ximalaya.ParseTrackFile(metadataPath, ref)
//	fmt.Println(item.MediaURL, item.FileName)
//
// Both parsers are pure: they read documents that were already fetched
// (through the cache) and never touch the network.
package ximalaya
