package character

// Item is a consumable a player can use in battle.
type Item struct {
	ID      string
	Name    string
	Healing int
	Mana    int
}

// Items is the consumable catalogue keyed by id.
var Items = map[string]Item{
	"health_potion": {ID: "health_potion", Name: "Health Potion", Healing: 50},
	"mana_potion":   {ID: "mana_potion", Name: "Mana Potion", Mana: 40},
	"elixir":        {ID: "elixir", Name: "Elixir", Healing: 30, Mana: 30},
}

// StartingItems returns a fresh copy of the kit every new player carries.
func StartingItems() map[string]int {
	return map[string]int{"health_potion": 2, "mana_potion": 1}
}
