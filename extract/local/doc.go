// Package local extracts text from files without calling any remote service.
//
// Supported inputs are PDF, DOCX, HTML, markdown, plain text and CSV. DOCX
// heading styles and HTML heading tags are rendered as markdown ATX headings
// (capped at level 3) so the chunker can split on them.
package local
