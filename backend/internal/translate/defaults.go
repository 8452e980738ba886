package translate

// Built-in phrasebook entries. They cover the languages seen most often in
// the desk's traffic; deployments extend them with a phrasebook YAML file
// or switch to the LLM backend entirely.

func defaultPhrases() map[string]string {
	return map[string]string{
		// French
		"le client a demandé une transaction urgente":    "The client requested an urgent transaction",
		"veuillez déplacer les fonds pour éviter la détection": "Please move the funds to avoid detection",
		"merci de garder cela entre nous":                "Please keep this between us",
		// Spanish
		"si aprueba el préstamo hoy, le pagaré el diez por ciento en efectivo": "If you approve the loan today, I will pay you ten percent in cash",
		"apruebe el préstamo y le pagaré en efectivo":                          "Approve the loan and I will pay you in cash",
		// German
		"bitte überweisen sie das geld, um eine entdeckung zu vermeiden": "Please transfer the money to avoid detection",
	}
}

func defaultWords() map[string]string {
	return map[string]string{
		"urgente":    "urgent",
		"dinero":     "money",
		"fonds":      "funds",
		"efectivo":   "cash",
		"cliente":    "client",
		"client":     "client",
		"merci":      "thank you",
		"bitte":      "please",
		"geld":       "money",
		"transaction": "transaction",
	}
}
