package steps

// Deterministic payloads used when a vendor client is not configured. The
// simulated fallback keeps the workflow runnable end to end without
// credentials.

func sampleCompetitors() []map[string]any {
	return []map[string]any{
		{
			"name":     "HydraPeak",
			"url":      "https://hydrapeak.example",
			"strategy": "Influencer unboxing clips with discount codes",
		},
		{
			"name":     "PureFlow Labs",
			"url":      "https://pureflow.example",
			"strategy": "Before/after lifestyle comparisons",
		},
		{
			"name":     "EverBottle",
			"url":      "https://everbottle.example",
			"strategy": "Sustainability storytelling with founder voiceover",
		},
	}
}

func sampleTrends() []map[string]any {
	return []map[string]any{
		{
			"name":      "Day-in-my-life product placement",
			"format":    "vlog",
			"relevance": "high",
		},
		{
			"name":      "Problem-agitate-solve hooks under 3 seconds",
			"format":    "talking head",
			"relevance": "high",
		},
		{
			"name":      "Street interview reactions",
			"format":    "interview",
			"relevance": "medium",
		},
	}
}

func sampleConcepts() []Concept {
	return []Concept{
		{
			ID:          "concept-1",
			Title:       "The Morning Routine Swap",
			Angle:       "relatable habit change",
			Description: "Creator swaps their usual product into a morning routine and narrates the difference.",
		},
		{
			ID:          "concept-2",
			Title:       "Honest First Impressions",
			Angle:       "authentic review",
			Description: "Unscripted first reaction on camera, cut with close-up product shots.",
		},
		{
			ID:          "concept-3",
			Title:       "Three Reasons I Switched",
			Angle:       "listicle testimonial",
			Description: "Fast-paced three-point testimonial with on-screen captions.",
		},
	}
}

func sampleScripts() []Script {
	return []Script{
		{
			ID:           "script-id-1",
			ConceptID:    "concept-1",
			Hook:         "I replaced one thing in my morning routine and it changed everything.",
			Body:         "Quick cuts of the routine, creator voiceover explaining the swap and the payoff.",
			CallToAction: "Tap the link to try it yourself.",
		},
		{
			ID:           "script-id-2",
			ConceptID:    "concept-2",
			Hook:         "Okay, I was NOT expecting this.",
			Body:         "Genuine unboxing reaction, product close-up, one honest drawback for credibility.",
			CallToAction: "Link in bio if you want to see for yourself.",
		},
	}
}
