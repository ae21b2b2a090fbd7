package serialize

import "strings"

// FormatPhone приводит сырой номер телефона к отображаемому виду
// "+<код> <номер по шаблону>". Код страны подбирается по самому длинному
// совпадению префикса (от 4 цифр к 1). Для стран без шаблона цифры
// остаются без изменений после префикса.
func FormatPhone(phone string) string {
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.TrimPrefix(phone, "+")
	if phone == "" {
		return ""
	}

	var (
		code    string
		pattern string
		found   bool
	)
	for codeLen := 4; codeLen >= 1; codeLen-- {
		if len(phone) < codeLen {
			continue
		}
		if p, ok := phonePatterns[phone[:codeLen]]; ok {
			code = phone[:codeLen]
			pattern = p
			phone = phone[codeLen:]
			found = true
			break
		}
	}

	if !found || pattern == "" {
		return "+" + code + " " + phone
	}

	var b strings.Builder
	for i := 0; i < len(pattern) && phone != ""; i++ {
		if pattern[i] == 'X' {
			b.WriteByte(phone[0])
			phone = phone[1:]
		} else {
			b.WriteByte(pattern[i])
		}
	}
	b.WriteString(phone)

	return "+" + code + " " + b.String()
}

// phonePatterns отображает код страны в шаблон номера, где X — очередная
// цифра. Пустой шаблон означает, что для страны формат не определен.
var phonePatterns = map[string]string{
	"376":  "XX XX XX",       // Андорра
	"971":  "XX XXX XXXX",    // ОАЭ
	"93":   "XXX XXX XXX",    // Афганистан
	"1268": "XXX XXXX",       // Антигуа и Барбуда
	"1264": "XXX XXXX",       // Ангилья
	"355":  "XX XXX XXXX",    // Албания
	"374":  "XX XXX XXX",     // Армения
	"244":  "XXX XXX XXX",    // Ангола
	"54":   "",               // Аргентина
	"1684": "XXX XXXX",       // Американское Самоа
	"43":   "X XXXXXXXX",     // Австрия
	"61":   "X XXXX XXXX",    // Австралия
	"297":  "XXX XXXX",       // Аруба
	"994":  "XX XXX XXXX",    // Азербайджан
	"387":  "XX XXX XXX",     // Босния и Герцеговина
	"1246": "XXX XXXX",       // Барбадос
	"880":  "XX XXX XXX",     // Бангладеш
	"32":   "XXX XX XX XX",   // Бельгия
	"226":  "XX XX XX XX",    // Буркина-Фасо
	"359":  "",               // Болгария
	"973":  "XXXX XXXX",      // Бахрейн
	"257":  "XX XX XXXX",     // Бурунди
	"229":  "XX XXX XXX",     // Бенин
	"1441": "XXX XXXX",       // Бермуды
	"673":  "XXX XXXX",       // Бруней
	"591":  "X XXX XXXX",     // Боливия
	"599":  "",               // Бонэйр, Кюрасао
	"55":   "XX XXXXX XXXX",  // Бразилия
	"1242": "XXX XXXX",       // Багамы
	"975":  "XX XXX XXX",     // Бутан
	"267":  "XX XXX XXX",     // Ботсвана
	"375":  "XX XXX XXXX",    // Беларусь
	"501":  "",               // Белиз
	"243":  "XX XXX XXXX",    // Конго (ДР)
	"236":  "XX XX XX XX",    // ЦАР
	"242":  "XX XXX XXXX",    // Конго
	"41":   "XX XXX XXXX",    // Швейцария
	"225":  "XX XX XX XXXX",  // Кот-д'Ивуар
	"682":  "",               // Острова Кука
	"56":   "X XXXX XXXX",    // Чили
	"237":  "XXXX XXXX",      // Камерун
	"86":   "XXX XXXX XXXX",  // Китай
	"57":   "XXX XXX XXXX",   // Колумбия
	"506":  "XXXX XXXX",      // Коста-Рика
	"53":   "X XXX XXXX",     // Куба
	"238":  "XXX XXXX",       // Кабо-Верде
	"357":  "XXXX XXXX",      // Кипр
	"420":  "XXX XXX XXX",    // Чехия
	"49":   "XXXX XXXXXXX",   // Германия
	"253":  "XX XX XX XX",    // Джибути
	"45":   "XXXX XXXX",      // Дания
	"1767": "XXX XXXX",       // Доминика
	"1809": "XXX XXXX",       // Доминиканская Республика
	"213":  "XXX XX XX XX",   // Алжир
	"593":  "XX XXX XXXX",    // Эквадор
	"372":  "XXXX XXXX",      // Эстония
	"20":   "XX XXXX XXXX",   // Египет
	"291":  "X XXX XXX",      // Эритрея
	"34":   "XXX XXX XXX",    // Испания
	"251":  "XX XXX XXXX",    // Эфиопия
	"358":  "",               // Финляндия
	"679":  "XXX XXXX",       // Фиджи
	"500":  "",               // Фолклендские острова
	"691":  "",               // Микронезия
	"298":  "XXX XXX",        // Фарерские острова
	"33":   "X XX XX XX XX",  // Франция
	"241":  "X XX XX XX",     // Габон
	"44":   "XXXX XXXXXX",    // Великобритания
	"1473": "XXX XXXX",       // Гренада
	"995":  "XXX XXX XXX",    // Грузия
	"594":  "",               // Французская Гвиана
	"233":  "XX XXX XXXX",    // Гана
	"350":  "XXXX XXXX",      // Гибралтар
	"299":  "XXX XXX",        // Гренландия
	"220":  "XXX XXXX",       // Гамбия
	"224":  "XXX XXX XXX",    // Гвинея
	"590":  "XXX XX XX XX",   // Гваделупа
	"240":  "XXX XXX XXX",    // Экваториальная Гвинея
	"30":   "XXX XXX XXXX",   // Греция
	"502":  "X XXX XXXX",     // Гватемала
	"1671": "XXX XXXX",       // Гуам
	"245":  "XXX XXXX",       // Гвинея-Бисау
	"592":  "",               // Гайана
	"852":  "X XXX XXXX",     // Гонконг
	"504":  "XXXX XXXX",      // Гондурас
	"385":  "XX XXX XXX",     // Хорватия
	"509":  "XXXX XXXX",      // Гаити
	"36":   "XXX XXX XXX",    // Венгрия
	"62":   "XXX XXXXXX",     // Индонезия
	"353":  "XX XXX XXXX",    // Ирландия
	"972":  "XX XXX XXXX",    // Израиль
	"91":   "XXXXX XXXXX",    // Индия
	"246":  "XXX XXXX",       // Диего-Гарсия
	"964":  "XXX XXX XXXX",   // Ирак
	"98":   "XXX XXX XXXX",   // Иран
	"354":  "XXX XXXX",       // Исландия
	"39":   "XXX XXX XXX",    // Италия
	"1876": "XXX XXXX",       // Ямайка
	"962":  "X XXXX XXXX",    // Иордания
	"81":   "XX XXXX XXXX",   // Япония
	"254":  "XXX XXX XXX",    // Кения
	"996":  "XXX XXXXXX",     // Киргизия
	"855":  "XX XXX XXX",     // Камбоджа
	"686":  "XXXX XXXX",      // Кирибати
	"269":  "XXX XXXX",       // Коморы
	"1869": "XXX XXXX",       // Сент-Китс и Невис
	"850":  "",               // КНДР
	"82":   "XX XXXX XXX",    // Южная Корея
	"965":  "XXXX XXXX",      // Кувейт
	"1345": "XXX XXXX",       // Каймановы острова
	"856":  "XX XX XXX XXX",  // Лаос
	"961":  "XX XXX XXX",     // Ливан
	"1758": "XXX XXXX",       // Сент-Люсия
	"423":  "XXX XXXX",       // Лихтенштейн
	"94":   "XX XXX XXXX",    // Шри-Ланка
	"231":  "XX XXX XXXX",    // Либерия
	"266":  "XX XXX XXX",     // Лесото
	"370":  "XXX XXXXX",      // Литва
	"352":  "XXX XXX XXX",    // Люксембург
	"371":  "XXX XXXXX",      // Латвия
	"218":  "XX XXX XXXX",    // Ливия
	"212":  "XX XXX XXXX",    // Марокко
	"377":  "XXXX XXXX",      // Монако
	"373":  "XX XXX XXX",     // Молдова
	"382":  "",               // Черногория
	"261":  "XX XX XXX XX",   // Мадагаскар
	"692":  "",               // Маршалловы острова
	"389":  "XX XXX XXX",     // Северная Македония
	"223":  "XXXX XXXX",      // Мали
	"95":   "",               // Мьянма
	"976":  "XX XX XXXX",     // Монголия
	"853":  "XXXX XXXX",      // Макао
	"1670": "XXX XXXX",       // Северные Марианские острова
	"596":  "",               // Мартиника
	"222":  "XXXX XXXX",      // Мавритания
	"1664": "XXX XXXX",       // Монтсеррат
	"356":  "XX XX XX XX",    // Мальта
	"230":  "XXXX XXXX",      // Маврикий
	"960":  "XXX XXXX",       // Мальдивы
	"265":  "XX XXX XXXX",    // Малави
	"52":   "",               // Мексика
	"60":   "XX XXXX XXXX",   // Малайзия
	"258":  "XX XXX XXXX",    // Мозамбик
	"264":  "XX XXX XXXX",    // Намибия
	"687":  "",               // Новая Каледония
	"227":  "XX XX XX XX",    // Нигер
	"672":  "",               // Остров Норфолк
	"234":  "XX XXXX XXXX",   // Нигерия
	"505":  "XXXX XXXX",      // Никарагуа
	"31":   "X XX XX XX XX",  // Нидерланды
	"47":   "XXXX XXXX",      // Норвегия
	"977":  "XX XXXX XXXX",   // Непал
	"674":  "",               // Науру
	"683":  "",               // Ниуэ
	"64":   "XXXX XXXX",      // Новая Зеландия
	"968":  "XXXX XXXX",      // Оман
	"507":  "XXXX XXXX",      // Панама
	"51":   "XXX XXX XXX",    // Перу
	"689":  "",               // Французская Полинезия
	"675":  "",               // Папуа — Новая Гвинея
	"63":   "XXX XXX XXXX",   // Филиппины
	"92":   "XXX XXX XXXX",   // Пакистан
	"48":   "XXX XXX XXX",    // Польша
	"508":  "",               // Сен-Пьер и Микелон
	"1787": "XXX XXXX",       // Пуэрто-Рико
	"970":  "XXX XX XXXX",    // Палестина
	"351":  "XXX XXX XXX",    // Португалия
	"680":  "",               // Палау
	"595":  "XXX XXX XXX",    // Парагвай
	"974":  "XX XXX XXX",     // Катар
	"262":  "XXX XXX XXX",    // Реюньон
	"40":   "XXX XXX XXX",    // Румыния
	"381":  "XX XXX XXXX",    // Сербия
	"7":    "XXX XXX XXXX",   // Россия
	"250":  "XXX XXX XXX",    // Руанда
	"966":  "XX XXX XXXX",    // Саудовская Аравия
	"677":  "",               // Соломоновы острова
	"248":  "X XX XX XX",     // Сейшелы
	"249":  "XX XXX XXXX",    // Судан
	"46":   "XX XXX XXXX",    // Швеция
	"65":   "XXXX XXXX",      // Сингапур
	"247":  "",               // Остров Святой Елены
	"386":  "XX XXX XXX",     // Словения
	"421":  "XXX XXX XXX",    // Словакия
	"232":  "XX XXX XXX",     // Сьерра-Леоне
	"378":  "XXX XXX XXXX",   // Сан-Марино
	"221":  "XX XXX XXXX",    // Сенегал
	"252":  "XX XXX XXX",     // Сомали
	"597":  "XXX XXXX",       // Суринам
	"211":  "XX XXX XXXX",    // Южный Судан
	"239":  "XX XXXXX",       // Сан-Томе и Принсипи
	"503":  "XXXX XXXX",      // Сальвадор
	"1721": "XXX XXXX",       // Синт-Мартен
	"963":  "XXX XXX XXX",    // Сирия
	"268":  "XXXX XXXX",      // Эсватини
	"1649": "XXX XXXX",       // Теркс и Кайкос
	"235":  "XX XX XX XX",    // Чад
	"228":  "XX XXX XXX",     // Того
	"66":   "X XXXX XXXX",    // Таиланд
	"992":  "XX XXX XXXX",    // Таджикистан
	"690":  "",               // Токелау
	"670":  "",               // Восточный Тимор
	"993":  "XX XXXXXX",      // Туркменистан
	"216":  "XX XXX XXX",     // Тунис
	"676":  "",               // Тонга
	"90":   "XXX XXX XXXX",   // Турция
	"1868": "XXX XXXX",       // Тринидад и Тобаго
	"688":  "",               // Тувалу
	"886":  "XXX XXX XXX",    // Тайвань
	"255":  "XX XXX XXXX",    // Танзания
	"380":  "XX XXX XX XX",   // Украина
	"256":  "XX XXX XXXX",    // Уганда
	"1":    "XXX XXX XXXX",   // США / Канада
	"598":  "X XXX XXXX",     // Уругвай
	"998":  "XX XXX XX XX",   // Узбекистан
	"1784": "XXX XXXX",       // Сент-Винсент и Гренадины
	"58":   "XXX XXX XXXX",   // Венесуэла
	"1284": "XXX XXXX",       // Британские Виргинские острова
	"1340": "XXX XXXX",       // Американские Виргинские острова
	"84":   "",               // Вьетнам
	"678":  "",               // Вануату
	"681":  "",               // Уоллис и Футуна
	"685":  "",               // Самоа
	"383":  "XXXX XXXX",      // Косово
	"967":  "XXX XXX XXX",    // Йемен
	"27":   "XX XXX XXXX",    // ЮАР
	"260":  "XX XXX XXXX",    // Замбия
	"263":  "XX XXX XXXX",    // Зимбабве
}
