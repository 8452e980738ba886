package taxonomy

// Built-in taxonomy used when no taxonomy directory is configured. It is a
// condensed rendering of the institutional policy corpus; production
// deployments ship the full set as YAML and pin a version.

const (
	defaultMinStrength         = 0.7
	defaultTaxonomyFingerprint = "builtin-2024.1"
)

// DefaultTaxonomy returns the built-in category set.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Version:     "2024.1",
		MinStrength: defaultMinStrength,
		Categories: []CategoryDefinition{
			{
				ID:          "structuring-evasion",
				Name:        "Structuring / Reporting Evasion",
				Description: "Splitting or shaping transactions to stay under reporting thresholds, or instructions to keep transfers off the record.",
				Specificity: 40,
				Citation:    Citation{Document: "Anti-Money Laundering Policy", Section: "3.2 Structured Transactions"},
				Lexical: []string{
					`\$\s?9[,.]?\d{3}\b`,
					`\b(?:two|three|four|five|several|multiple|\d+) (?:different |separate )?accounts\b`,
					`\bsplit (?:the )?(?:payment|transfer|deposit|amount)s?\b`,
					`\bbelow (?:the )?(?:reporting )?threshold\b`,
					`\bstructur(?:e|ing|ed)\b`,
					`\b(?:move|moving|wire|wiring|transfer(?:ring)?) (?:the )?(?:funds|money|\$?[\d,.]+)\b`,
				},
				Contextual: []string{
					`\b(?:don'?t|do not|never) (?:mention|report|record|document|flag)\b`,
					`\bno (?:memo|paper ?trail|record)s?\b`,
					`\bavoid (?:the )?(?:report(?:ing)?|detection|scrutiny|attention)\b`,
					`\bunder the radar\b`,
					`\b(?:keep|leave) (?:it|this|them) (?:off|out of)\b`,
					`\bwithout (?:raising |triggering )?(?:a |any )?(?:flag|alert|report)s?\b`,
					`\boff the books\b`,
				},
			},
			{
				ID:          "front-running",
				Name:        "Front Running",
				Description: "Trading ahead of known client orders for personal or house benefit.",
				Specificity: 35,
				Citation:    Citation{Document: "Personal Trading Policy", Section: "2.4 Front Running"},
				Lexical: []string{
					`\bfront.?run(?:ning)?\b`,
					`\bblock trade\b`,
					`\bpending (?:client )?orders?\b`,
					`\bahead of the (?:client|order|trade)\b`,
					`\bbefore (?:the|we) (?:order|trade|execute)\b`,
				},
				Contextual: []string{
					`\b(?:personal|my own|your own) account\b`,
					`\bdon'?t (?:tell|mention)\b`,
					`\bbefore (?:it|the order) (?:hits|goes|prints)\b`,
					`\bkeep (?:this|it) quiet\b`,
				},
			},
			{
				ID:          "bribery-corruption",
				Name:        "Bribery / Corruption",
				Description: "Offering or soliciting anything of value to improperly influence a business decision.",
				Specificity: 30,
				Citation:    Citation{Document: "Anti-Bribery and Corruption Policy", Section: "4.1 Improper Payments"},
				Lexical: []string{
					`\bbrib(?:e|es|ery|ing)\b`,
					`\bkickbacks?\b`,
					`\bquid pro quo\b`,
					`\bfacilitation payments?\b`,
					`\bpayoffs?\b`,
					`\b(?:pay|give|send|offer) (?:you|him|her|them) .{0,24}(?:cash|percent|%)`,
				},
				Contextual: []string{
					`\b(?:approve|award|expedite|fast.?track|influence|overlook|waive)\b`,
					`\bin (?:exchange|return) for\b`,
					`\bkeep (?:this|it) between us\b`,
					`\bpersonal favou?r\b`,
				},
			},
			{
				ID:          "rumors-secrets",
				Name:        "Rumors & Secrets",
				Description: "Spreading market rumors or sharing material non-public information outside approved channels.",
				Specificity: 25,
				Citation:    Citation{Document: "Information Barriers Policy", Section: "5.1 Material Non-Public Information"},
				Lexical: []string{
					`\binsider\b`,
					`\bmaterial non.?public\b`,
					`\bmnpi\b`,
					`\brumou?rs?\b`,
					`\b(?:earnings|merger|acquisition) (?:announcement|news|results)\b`,
				},
				Contextual: []string{
					`\bkeep (?:this|it) (?:quiet|secret|between us)\b`,
					`\bdon'?t (?:share|forward|tell)\b`,
					`\bbefore (?:the|it'?s) (?:announce|public)`,
					`\bnot (?:yet )?public\b`,
					`\bleak(?:ed|ing)?\b`,
				},
			},
			{
				ID:          "outside-business-activity",
				Name:        "Outside Business Activity",
				Description: "Undisclosed business activity or compensation outside the firm.",
				Specificity: 20,
				Citation:    Citation{Document: "Code of Conduct", Section: "6.3 Outside Business Activity"},
				Lexical: []string{
					`\boutside business\b`,
					`\bside (?:business|venture|gig)\b`,
					`\bmoonlight(?:ing)?\b`,
					`\bmy (?:own )?(?:company|firm|consultancy)\b`,
					`\bconsulting (?:work|arrangement|fees?)\b`,
				},
				Contextual: []string{
					`\bwithout (?:disclosing|disclosure|approval)\b`,
					`\bnot (?:disclose|declared?)\b`,
					`\boff the record\b`,
					`\bcompliance (?:doesn'?t|does not) (?:know|need to know)\b`,
				},
			},
		},
	}
}
