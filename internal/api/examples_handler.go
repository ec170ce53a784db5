package api

import "net/http"

var examplePrompts = []ExamplePrompt{
	{Image: "gallery/farmer_sunset.png", Prompt: "A farmer tilling a farm with a tractor during sunset, cinematic, dramatic"},
	{Image: "gallery/astro_on_unicorn.png", Prompt: "An astronaut riding a rainbow unicorn, cinematic, dramatic"},
	{Image: "gallery/friends.png", Prompt: "A group of friends laughing and dancing at a music festival, joyful atmosphere, 35mm film photography"},
	{Image: "gallery/wizard.png", Prompt: "A wizard casting a spell, intense magical energy glowing from his hands, extremely detailed fantasy illustration"},
	{Image: "gallery/puppy.png", Prompt: "A cute puppy playing in a field of flowers, shallow depth of field, Canon photography"},
	{Image: "gallery/cheetah.png", Prompt: "A cheetah mother nurses her cubs in the tall grass of the Serengeti. The early morning sun beams down through the grass. National Geographic photography by Frans Lanting"},
	{Image: "gallery/viking.png", Prompt: "A close-up portrait of a bearded viking warrior in a horned helmet. He stares intensely into the distance while holding a battle axe. Dramatic mood lighting, digital oil painting"},
}

func (router *Router) examplesHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, examplePrompts)
}
