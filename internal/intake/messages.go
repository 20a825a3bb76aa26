package intake

// Menu choices offered as buttons.
const (
	ChoiceStart = "🩺 Triagem + Agendamento"
	ChoiceInfo  = "ℹ️ Informações"
)

var menuChoices = []string{ChoiceStart, ChoiceInfo}

const (
	msgMenu = "🧠 Olá! Sou o Assistente de Saúde Mental do IFAM CMZL.\n" +
		"Como posso ajudar?"
	msgStartTriage = "Perfeito! Vamos começar com alguns dados básicos para o agendamento."
	msgInfo        = "Triagem acolhedora do IFAM CMZL.\n" +
		"Em caso de emergência, ligue 188 (CVV) ou 192 (SAMU).\n" +
		"Use /start para voltar ao menu."
	msgMenuRetry = "Para iniciar a triagem, escolha " + ChoiceStart +
		" ou envie uma saudação como “oi”."
	msgDeclined = "Tudo bem. Quando quiser fazer a triagem, envie /start.\n" +
		"Em caso de emergência, ligue 188 (CVV) ou 192 (SAMU)."

	msgResume             = "Estamos com a triagem em andamento. Vamos continuar de onde paramos, tudo bem?"
	msgResumeConversation = "Pode continuar compartilhando como tem se sentido. " +
		"Assim que terminar, sigo com as próximas etapas."
	msgResumeAvailability = "Me conte seus horários disponíveis entre 15h e 18h (segunda a sexta)."

	msgConversationIntro = "Obrigado por compartilhar suas informações até aqui 💙\n\n" +
		"Agora, se sentir confortável, me conte:\n" +
		"**como você tem se sentido nos últimos dias?**\n\n" +
		"Estou aqui para te ouvir.\n\n" +
		"Logo após a sua mensagem, vou conduzir um questionário rápido para cuidar de você, tudo bem?"
	msgEmpathyFallback = "Estou aqui com você."

	msgPHQ9Intro       = "Para seguirmos com o cuidado, vou aplicar um questionário rápido sobre seu humor nas últimas semanas."
	msgPHQ9Instruction = "São 9 perguntas (PHQ-9). Responda usando os botões 0, 1, 2 ou 3 conforme a frequência."
	msgGAD7Intro       = "Agora vamos responder 7 perguntas rápidas sobre ansiedade (GAD-7)."
	msgInvalidAnswer   = "Por favor, responda com 0, 1, 2 ou 3 conforme a escala de frequência.\n\n"

	msgAvailability      = "Para finalizar, informe seus horários disponíveis (seg–sex, 15h–18h)."
	msgAvailabilityRetry = "Informe dia(s) e horários entre 15h e 18h, de segunda a sexta."
	msgObservation       = "Deseja adicionar alguma observação? (ou digite 'Nenhuma')"

	msgCompleted = "✅ Triagem registrada com sucesso. A equipe entrará em contato em breve.\n\n" +
		"Resultado: PHQ-9 %s, GAD-7 %s. Classificação geral: %s.\n\n" +
		"Em caso de emergência, procure ajuda imediatamente (188 ou 192)."
	msgDeliveryFailed = "⚠️ Recebemos suas respostas, mas não conseguimos registrar a triagem agora. " +
		"A equipe será avisada.\n" +
		"Em caso de emergência, procure ajuda imediatamente (188 ou 192)."
	msgAlreadyClosed = "Esta triagem já foi encerrada. Use /start para recomeçar."

	msgCancelled      = "Triagem cancelada. Use /start para recomeçar."
	msgUnknownCommand = "Comando não reconhecido. Use /start, /menu ou /cancelar."
)
