package i18n

var messages = map[string]map[string]string{
	"en": {
		"welcome":              "🏠 Welcome to Buenos Aires Property Bot!\n\nI'll help you find the perfect property in Argentina's capital.\nUse /search to create an alert or /help to see all commands.",
		"help_text":            "🤖 Property Bot Help\n\nCommands:\n• /start - Start the bot\n• /search - Create a property alert\n• /searches - Manage your saved searches\n• /language - Change language\n• /cancel - Abort the current search\n• /help - Show this help",
		"unknown_command":      "Unknown command. Use /help for a list of commands.",
		"access_denied":        "Access denied.",
		"error_occurred":       "❌ An error occurred. Please try again.",
		"choose_language":      "🌍 Please choose your language:",
		"language_changed":     "✅ Language changed to English",
		"choose_property_type": "🏠 What type of property are you looking for?",
		"apartment":            "🏢 Apartment",
		"house":                "🏡 House",
		"studio":               "🏨 Studio",
		"commercial":           "🏪 Commercial",
		"any_type":             "🎯 Any Type",
		"choose_location":      "📍 Choose location:",
		"any_location":         "🗺️ Any Location",
		"choose_bedrooms":      "🛏️ How many bedrooms?",
		"any_bedrooms":         "Any",
		"enter_min_price":      "💰 Enter minimum price (USD) or 0 for no limit:",
		"enter_max_price":      "💰 Enter maximum price (USD) or 0 for no limit:",
		"invalid_price":        "❌ Please enter a valid number",
		"invalid_range":        "❌ Maximum price must be greater than the minimum",
		"search_summary":       "📋 Search Summary:\n• Type: %s\n• Location: %s\n• Price: %s\n• Bedrooms: %s",
		"save_search_prompt":   "💾 Do you want to save this search for notifications?",
		"save_search":          "💾 Save Search",
		"dont_save":            "🔍 Just show results",
		"enter_search_name":    "📝 Enter a name for this search (e.g., '2BR Apartment in Palermo'):",
		"invalid_name":         "❌ The name must be between 1 and 64 characters",
		"alert_frequency":      "⏰ How often do you want to receive notifications?",
		"immediately":          "🚀 Immediately",
		"daily":                "📅 Daily Summary",
		"weekly":               "📆 Weekly Summary",
		"search_saved":         "✅ Search saved! You'll receive notifications about new properties.",
		"cancelled":            "❌ Search cancelled.",
		"nothing_to_cancel":    "There is no search in progress.",
		"my_searches_list":     "📂 Your Saved Searches:",
		"no_saved_searches":    "You don't have any saved searches yet.",
		"run_search":           "🔍 Run",
		"toggle_alert":         "🔄 Toggle",
		"delete_alert":         "🗑️ Delete",
		"alert_deleted":        "✅ Alert deleted",
		"alert_toggled":        "✅ Alert status changed",
		"notifications_on":     "🔔 Notifications ON",
		"notifications_off":    "🔕 Notifications OFF",
		"searching":            "🔍 Searching for properties...",
		"no_results":           "😔 No properties found with your criteria",
		"found_properties":     "🏠 Found %d properties:",
		"any":                  "any",
		"no_limit":             "no limit",
		"new_property_alert":   "🆕 New property matching your search '%s'!",
		"price_drop_alert":     "📉 Price drop on your search '%s'!",
		"price_rise_alert":     "📈 Price change on your search '%s'!",
		"price_before":         "Before: %s (%s)",
		"daily_summary_title":  "📊 Daily summary - %s",
		"weekly_summary_title": "📊 Weekly summary - %s",
		"summary_count_daily":  "New properties in the last 24 hours: %d",
		"summary_count_weekly": "New properties in the last 7 days: %d",
		"and_more":             "... and %d more properties",
		"price_on_request":     "Price on request",
		"untitled":             "Untitled",
		"language_label":       "🇬🇧 English",
	},
	"es": {
		"welcome":              "🏠 ¡Bienvenido al Bot de Propiedades de Buenos Aires!\n\nTe ayudaré a encontrar la propiedad perfecta en la capital argentina.\nUsa /search para crear una alerta o /help para ver los comandos.",
		"help_text":            "🤖 Ayuda del Bot de Propiedades\n\nComandos:\n• /start - Iniciar el bot\n• /search - Crear una alerta de propiedades\n• /searches - Gestionar tus búsquedas guardadas\n• /language - Cambiar idioma\n• /cancel - Cancelar la búsqueda en curso\n• /help - Mostrar esta ayuda",
		"unknown_command":      "Comando desconocido. Usa /help para ver la lista de comandos.",
		"access_denied":        "Acceso denegado.",
		"error_occurred":       "❌ Ocurrió un error. Por favor, intenta de nuevo.",
		"choose_language":      "🌍 Por favor, elige tu idioma:",
		"language_changed":     "✅ Idioma cambiado a Español",
		"choose_property_type": "🏠 ¿Qué tipo de propiedad buscas?",
		"apartment":            "🏢 Departamento",
		"house":                "🏡 Casa",
		"studio":               "🏨 Monoambiente",
		"commercial":           "🏪 Local Comercial",
		"any_type":             "🎯 Cualquier Tipo",
		"choose_location":      "📍 Elige la ubicación:",
		"any_location":         "🗺️ Cualquier Zona",
		"choose_bedrooms":      "🛏️ ¿Cuántos dormitorios?",
		"any_bedrooms":         "Cualquiera",
		"enter_min_price":      "💰 Ingresa el precio mínimo (USD) o 0 sin límite:",
		"enter_max_price":      "💰 Ingresa el precio máximo (USD) o 0 sin límite:",
		"invalid_price":        "❌ Por favor, ingresa un número válido",
		"invalid_range":        "❌ El precio máximo debe ser mayor que el mínimo",
		"search_summary":       "📋 Resumen de búsqueda:\n• Tipo: %s\n• Ubicación: %s\n• Precio: %s\n• Dormitorios: %s",
		"save_search_prompt":   "💾 ¿Quieres guardar esta búsqueda para recibir notificaciones?",
		"save_search":          "💾 Guardar Búsqueda",
		"dont_save":            "🔍 Solo ver resultados",
		"enter_search_name":    "📝 Ingresa un nombre para esta búsqueda (ej: 'Depto 2 amb en Palermo'):",
		"invalid_name":         "❌ El nombre debe tener entre 1 y 64 caracteres",
		"alert_frequency":      "⏰ ¿Con qué frecuencia quieres recibir notificaciones?",
		"immediately":          "🚀 Inmediatamente",
		"daily":                "📅 Resumen Diario",
		"weekly":               "📆 Resumen Semanal",
		"search_saved":         "✅ ¡Búsqueda guardada! Recibirás notificaciones sobre nuevas propiedades.",
		"cancelled":            "❌ Búsqueda cancelada.",
		"nothing_to_cancel":    "No hay ninguna búsqueda en curso.",
		"my_searches_list":     "📂 Tus Búsquedas Guardadas:",
		"no_saved_searches":    "No tienes búsquedas guardadas todavía.",
		"run_search":           "🔍 Ejecutar",
		"toggle_alert":         "🔄 Cambiar",
		"delete_alert":         "🗑️ Eliminar",
		"alert_deleted":        "✅ Alerta eliminada",
		"alert_toggled":        "✅ Estado de alerta cambiado",
		"notifications_on":     "🔔 Notificaciones ACTIVADAS",
		"notifications_off":    "🔕 Notificaciones DESACTIVADAS",
		"searching":            "🔍 Buscando propiedades...",
		"no_results":           "😔 No se encontraron propiedades con tus criterios",
		"found_properties":     "🏠 Se encontraron %d propiedades:",
		"any":                  "cualquiera",
		"no_limit":             "sin límite",
		"new_property_alert":   "🆕 ¡Nueva propiedad que coincide con tu búsqueda '%s'!",
		"price_drop_alert":     "📉 ¡Bajó el precio en tu búsqueda '%s'!",
		"price_rise_alert":     "📈 Cambio de precio en tu búsqueda '%s'",
		"price_before":         "Antes: %s (%s)",
		"daily_summary_title":  "📊 Resumen diario - %s",
		"weekly_summary_title": "📊 Resumen semanal - %s",
		"summary_count_daily":  "Nuevas propiedades en las últimas 24 horas: %d",
		"summary_count_weekly": "Nuevas propiedades en los últimos 7 días: %d",
		"and_more":             "... y %d propiedades más",
		"price_on_request":     "Consultar precio",
		"untitled":             "Sin título",
		"language_label":       "🇦🇷 Español",
	},
	"pt": {
		"welcome":              "🏠 Bem-vindo ao Bot de Imóveis de Buenos Aires!\n\nVou ajudar você a encontrar o imóvel perfeito na capital argentina.\nUse /search para criar um alerta ou /help para ver os comandos.",
		"help_text":            "🤖 Ajuda do Bot de Imóveis\n\nComandos:\n• /start - Iniciar o bot\n• /search - Criar um alerta de imóveis\n• /searches - Gerenciar suas buscas salvas\n• /language - Mudar idioma\n• /cancel - Cancelar a busca em andamento\n• /help - Mostrar esta ajuda",
		"unknown_command":      "Comando desconhecido. Use /help para ver a lista de comandos.",
		"access_denied":        "Acesso negado.",
		"error_occurred":       "❌ Ocorreu um erro. Por favor, tente novamente.",
		"choose_language":      "🌍 Por favor, escolha seu idioma:",
		"language_changed":     "✅ Idioma alterado para Português",
		"choose_property_type": "🏠 Que tipo de imóvel você procura?",
		"apartment":            "🏢 Apartamento",
		"house":                "🏡 Casa",
		"studio":               "🏨 Estúdio",
		"commercial":           "🏪 Comercial",
		"any_type":             "🎯 Qualquer Tipo",
		"choose_location":      "📍 Escolha a localização:",
		"any_location":         "🗺️ Qualquer Local",
		"choose_bedrooms":      "🛏️ Quantos quartos?",
		"any_bedrooms":         "Qualquer",
		"enter_min_price":      "💰 Digite o preço mínimo (USD) ou 0 para sem limite:",
		"enter_max_price":      "💰 Digite o preço máximo (USD) ou 0 para sem limite:",
		"invalid_price":        "❌ Por favor, digite um número válido",
		"invalid_range":        "❌ O preço máximo deve ser maior que o mínimo",
		"search_summary":       "📋 Resumo da busca:\n• Tipo: %s\n• Localização: %s\n• Preço: %s\n• Quartos: %s",
		"save_search_prompt":   "💾 Deseja salvar esta busca para receber notificações?",
		"save_search":          "💾 Salvar Busca",
		"dont_save":            "🔍 Apenas ver resultados",
		"enter_search_name":    "📝 Digite um nome para esta busca (ex: 'Apto 2 quartos em Palermo'):",
		"invalid_name":         "❌ O nome deve ter entre 1 e 64 caracteres",
		"alert_frequency":      "⏰ Com que frequência deseja receber notificações?",
		"immediately":          "🚀 Imediatamente",
		"daily":                "📅 Resumo Diário",
		"weekly":               "📆 Resumo Semanal",
		"search_saved":         "✅ Busca salva! Você receberá notificações sobre novos imóveis.",
		"cancelled":            "❌ Busca cancelada.",
		"nothing_to_cancel":    "Não há nenhuma busca em andamento.",
		"my_searches_list":     "📂 Suas Buscas Salvas:",
		"no_saved_searches":    "Você ainda não tem buscas salvas.",
		"run_search":           "🔍 Executar",
		"toggle_alert":         "🔄 Alternar",
		"delete_alert":         "🗑️ Excluir",
		"alert_deleted":        "✅ Alerta excluído",
		"alert_toggled":        "✅ Status do alerta alterado",
		"notifications_on":     "🔔 Notificações ATIVADAS",
		"notifications_off":    "🔕 Notificações DESATIVADAS",
		"searching":            "🔍 Buscando imóveis...",
		"no_results":           "😔 Nenhum imóvel encontrado com seus critérios",
		"found_properties":     "🏠 Encontrados %d imóveis:",
		"any":                  "qualquer",
		"no_limit":             "sem limite",
		"new_property_alert":   "🆕 Novo imóvel para sua busca '%s'!",
		"price_drop_alert":     "📉 Queda de preço na sua busca '%s'!",
		"price_rise_alert":     "📈 Mudança de preço na sua busca '%s'!",
		"price_before":         "Antes: %s (%s)",
		"daily_summary_title":  "📊 Resumo diário - %s",
		"weekly_summary_title": "📊 Resumo semanal - %s",
		"summary_count_daily":  "Novos imóveis nas últimas 24 horas: %d",
		"summary_count_weekly": "Novos imóveis nos últimos 7 dias: %d",
		"and_more":             "... e mais %d imóveis",
		"price_on_request":     "Preço sob consulta",
		"untitled":             "Sem título",
		"language_label":       "🇧🇷 Português",
	},
	"ru": {
		"welcome":              "🏠 Добро пожаловать в бот недвижимости Буэнос-Айреса!\n\nЯ помогу найти идеальную недвижимость в столице Аргентины.\nИспользуйте /search, чтобы создать оповещение, или /help для списка команд.",
		"help_text":            "🤖 Помощь по боту недвижимости\n\nКоманды:\n• /start - Запустить бота\n• /search - Создать оповещение\n• /searches - Управлять сохранёнными поисками\n• /language - Сменить язык\n• /cancel - Прервать текущий поиск\n• /help - Показать эту справку",
		"unknown_command":      "Неизвестная команда. Используйте /help для списка команд.",
		"access_denied":        "Доступ запрещён.",
		"error_occurred":       "❌ Произошла ошибка. Пожалуйста, попробуйте снова.",
		"choose_language":      "🌍 Пожалуйста, выберите язык:",
		"language_changed":     "✅ Язык изменён на русский",
		"choose_property_type": "🏠 Какой тип недвижимости вы ищете?",
		"apartment":            "🏢 Квартира",
		"house":                "🏡 Дом",
		"studio":               "🏨 Студия",
		"commercial":           "🏪 Коммерческая",
		"any_type":             "🎯 Любой тип",
		"choose_location":      "📍 Выберите район:",
		"any_location":         "🗺️ Любой район",
		"choose_bedrooms":      "🛏️ Сколько спален?",
		"any_bedrooms":         "Любое",
		"enter_min_price":      "💰 Введите минимальную цену (USD) или 0 без ограничения:",
		"enter_max_price":      "💰 Введите максимальную цену (USD) или 0 без ограничения:",
		"invalid_price":        "❌ Пожалуйста, введите корректное число",
		"invalid_range":        "❌ Максимальная цена должна быть больше минимальной",
		"search_summary":       "📋 Параметры поиска:\n• Тип: %s\n• Район: %s\n• Цена: %s\n• Спальни: %s",
		"save_search_prompt":   "💾 Сохранить этот поиск для уведомлений?",
		"save_search":          "💾 Сохранить поиск",
		"dont_save":            "🔍 Только показать результаты",
		"enter_search_name":    "📝 Введите название поиска (например, 'Квартира 2 комнаты в Палермо'):",
		"invalid_name":         "❌ Название должно быть от 1 до 64 символов",
		"alert_frequency":      "⏰ Как часто присылать уведомления?",
		"immediately":          "🚀 Сразу",
		"daily":                "📅 Ежедневная сводка",
		"weekly":               "📆 Еженедельная сводка",
		"search_saved":         "✅ Поиск сохранён! Вы будете получать уведомления о новых объектах.",
		"cancelled":            "❌ Поиск отменён.",
		"nothing_to_cancel":    "Нет активного поиска.",
		"my_searches_list":     "📂 Ваши сохранённые поиски:",
		"no_saved_searches":    "У вас пока нет сохранённых поисков.",
		"run_search":           "🔍 Запустить",
		"toggle_alert":         "🔄 Вкл/выкл",
		"delete_alert":         "🗑️ Удалить",
		"alert_deleted":        "✅ Оповещение удалено",
		"alert_toggled":        "✅ Статус оповещения изменён",
		"notifications_on":     "🔔 Уведомления ВКЛЮЧЕНЫ",
		"notifications_off":    "🔕 Уведомления ВЫКЛЮЧЕНЫ",
		"searching":            "🔍 Ищу недвижимость...",
		"no_results":           "😔 По вашим критериям ничего не найдено",
		"found_properties":     "🏠 Найдено объектов: %d",
		"any":                  "любой",
		"no_limit":             "без ограничения",
		"new_property_alert":   "🆕 Новый объект по вашему поиску '%s'!",
		"price_drop_alert":     "📉 Цена снизилась в вашем поиске '%s'!",
		"price_rise_alert":     "📈 Цена изменилась в вашем поиске '%s'!",
		"price_before":         "Было: %s (%s)",
		"daily_summary_title":  "📊 Ежедневная сводка - %s",
		"weekly_summary_title": "📊 Еженедельная сводка - %s",
		"summary_count_daily":  "Новых объектов за последние 24 часа: %d",
		"summary_count_weekly": "Новых объектов за последние 7 дней: %d",
		"and_more":             "... и ещё %d объектов",
		"price_on_request":     "Цена по запросу",
		"untitled":             "Без названия",
		"language_label":       "🇷🇺 Русский",
	},
}

// Neighborhoods are the locations offered by the search builder. Value is
// what a saved search stores; labels are proper nouns and not translated.
var Neighborhoods = []struct {
	Value string
	Label string
}{
	{"palermo", "🌳 Palermo"},
	{"recoleta", "🏛️ Recoleta"},
	{"puerto_madero", "🌊 Puerto Madero"},
	{"belgrano", "🏙️ Belgrano"},
	{"san_telmo", "🎨 San Telmo"},
	{"villa_crespo", "🎭 Villa Crespo"},
	{"caballito", "🐎 Caballito"},
}
