// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"io"
	"log/slog"
	"strings"
)

// SampleTEI is a small GROBID-shaped document: a header describing the
// citing paper, two numbered sections, one bibliographic citation of b5
// and a footnote.
var SampleTEI = WithTarget("#b5")

// MissingTargetTEI cites a key that is absent from the bibliography.
var MissingTargetTEI = WithTarget("#zz9")

// WithTarget returns the sample document with the citation marker pointed
// at target.
func WithTarget(target string) string {
	return strings.Replace(sampleTemplate, "{{target}}", target, 1)
}

const sampleTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<TEI xmlns="http://www.tei-c.org/ns/1.0" xmlns:xlink="http://www.w3.org/1999/xlink">
	<teiHeader xml:lang="en">
		<fileDesc>
			<titleStmt>
				<title level="a" type="main">Citation Contexts in Practice</title>
			</titleStmt>
			<sourceDesc>
				<biblStruct>
					<analytic>
						<author><persName><forename type="first">Ada</forename><surname>Lovelace</surname></persName></author>
						<author><persName><forename type="first">Charles</forename><surname>Babbage</surname></persName></author>
						<title level="a" type="main">Citation Contexts in Practice</title>
					</analytic>
					<monogr>
						<imprint><date type="published" when="1843"/></imprint>
					</monogr>
					<idno type="MD5">ABC123</idno>
					<idno type="DOI">10.9/self</idno>
				</biblStruct>
			</sourceDesc>
		</fileDesc>
	</teiHeader>
	<text xml:lang="en">
		<body>
			<div>
				<head n="2">Background</head>
				<p><s>Citations matter.</s></p>
			</div>
			<div>
				<head n="2.1">Method</head>
				<p>
					<s>We start here.</s>
					<s>Earlier work <ref type="bibr" target="{{target}}">[5]</ref> did this.</s>
				</p>
			</div>
			<note place="foot" n="1" xml:id="foot_0">A footnote.</note>
		</body>
		<back>
			<div type="references">
				<listBibl>
					<biblStruct xml:id="b5">
						<analytic>
							<title level="a" type="main">Prior Work</title>
							<author><persName><forename type="first">Grace</forename><surname>Hopper</surname></persName></author>
							<idno type="DOI">doi:10.1/x</idno>
						</analytic>
						<monogr>
							<title level="j">Journal of Things</title>
							<imprint><biblScope unit="volume">12</biblScope><date type="published" when="1952">1952</date></imprint>
						</monogr>
						<note type="raw_reference">G. Hopper. Prior Work. Journal of Things 12, 1952.</note>
					</biblStruct>
				</listBibl>
			</div>
		</back>
	</text>
</TEI>
`

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
