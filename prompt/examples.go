package prompt

// Examples are offered to the user before the first message. Picking one
// fills the input; it is never sent on its own.
var Examples = []string{
	"Create a tree showing butterfly metamorphosis from egg, through each caterpillar stage, chrysalis, to adult butterfly",
	"Show the stages of a maple tree's growth from seed germination through sapling, young tree, to mature tree",
	"Create a tree showing frog development from egg mass, through tadpole stages, to adult frog",
	"Show the evolution of birds from small theropod dinosaurs through archaeopteryx, early birds, to modern birds",
}

// ShortExamples are the compact forms listed after a failed turn.
var ShortExamples = []string{
	"Show butterfly metamorphosis from egg to adult",
	"Create tree of maple tree growth stages",
	"Show frog development from egg to adult",
	"Create bird evolution tree from dinosaurs to modern birds",
}
