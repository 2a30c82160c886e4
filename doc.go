// Package pdfpages recovers the page images of documents shown in the
// Google Drive file preview, where downloading is disabled.
//
// The preview renders each page as an image fetched from an internal
// endpoint. An [Extractor] opens the preview in headless Chrome, watches
// the outgoing requests, scrolls until the viewer stops asking for new
// pages, and downloads every page image it saw.
//
// For one-off extractions use the package-level helper:
//
//	res, err := pdfpages.Extract(ctx, "https://drive.google.com/file/d/<id>/view")
//
// For repeated extractions create an [Extractor], which caches results
// per document:
//
//	e, err := pdfpages.NewExtractor(pdfpages.WithNoSandbox())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Close()
//
//	res, err := e.Extract(ctx, link)
//
// [Extractor.Stream] reports each page image as soon as it has been
// downloaded, followed by a terminal done or error [Event]:
//
//	res, err := e.Stream(ctx, link, func(ev pdfpages.Event) {
//	    fmt.Println(ev.Type, ev.Page)
//	})
//
// A [Result] gives access to the pages in common forms:
//
//	res.Pages()                  // [][]byte, one image per page
//	res.Base64()                 // []string for JSON payloads
//	res.WriteZip(w)              // page-1.jpg, page-2.jpg, ...
//	res.PDF()                    // one PDF page per image
//	res.WriteToDir("out", 0o644) // page-N files on disk
//
// Chrome or Chromium must be available in PATH, or use [WithAutoDownload].
// [WithBrowserDriver] selects the go-rod backend instead of chromedp.
package pdfpages
